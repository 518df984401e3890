package messaging

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chrome native messaging limits
const (
	MaxInboundSize  = 64 << 20
	MaxOutboundSize = 1 << 20
)

// Envelope carries a message or its reply over a framed transport
type Envelope struct {
	ID       string    `json:"id,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// ReadFrame reads one length-prefixed frame (32-bit little-endian length, then payload)
func ReadFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxInboundSize {
		return nil, fmt.Errorf("%w: %d bytes inbound", ErrMessageTooLarge, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return buf, nil
}

// WriteFrame writes one length-prefixed frame
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxOutboundSize {
		return fmt.Errorf("%w: %d bytes outbound", ErrMessageTooLarge, len(payload))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Native serves a bus over Chrome's native messaging protocol
type Native struct {
	r      io.Reader
	w      io.Writer
	bus    *Bus
	logger *zap.Logger
	sender Sender

	wmu sync.Mutex
}

func NewNative(r io.Reader, w io.Writer, bus *Bus, logger *zap.Logger) *Native {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Native{
		r:      r,
		w:      w,
		bus:    bus,
		logger: logger,
		sender: Sender{ID: uuid.NewString(), Origin: "native"},
	}
}

// Serve reads envelopes until EOF or ctx is done. Each message is handled on
// its own goroutine; replies are written in completion order and matched by id.
// On cancellation the reader is closed when it is an io.Closer, which unblocks
// a pending read.
func (n *Native) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			frame, err := ReadFrame(n.r)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if c, ok := n.r.(io.Closer); ok {
				_ = c.Close()
				<-readerDone
			}
			return ctx.Err()

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err

		case frame := <-frames:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil || env.Message == nil {
				n.logger.Warn("ignoring malformed native message", zap.Error(err))
				continue
			}
			if env.ID == "" {
				env.ID = uuid.NewString()
			}

			wg.Add(1)
			go func(env Envelope) {
				defer wg.Done()
				n.handle(ctx, env)
			}(env)
		}
	}
}

func (n *Native) handle(ctx context.Context, env Envelope) {
	future, err := n.bus.Request(ctx, *env.Message, n.sender)
	if err != nil {
		n.logger.Debug("no listener replied",
			zap.String("id", env.ID),
			zap.String("action", env.Message.Action))
		return
	}

	res, err := future.Await(ctx)
	if err != nil {
		n.logger.Warn("reply abandoned", zap.String("id", env.ID), zap.Error(err))
		return
	}

	if err := n.write(Envelope{ID: env.ID, Response: &res.Response}); err != nil {
		n.logger.Error("failed to write native reply", zap.String("id", env.ID), zap.Error(err))
	}
}

func (n *Native) write(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	n.wmu.Lock()
	defer n.wmu.Unlock()
	return WriteFrame(n.w, payload)
}
