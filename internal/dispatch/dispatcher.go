// Package dispatch answers extraction requests with the content module
// published by the loader.
//
// The dispatcher is either uninitialized (no module or no extract capability)
// or ready. Requests that arrive before the module is ready fail at once with
// the "Extraction failed" content; they are not queued.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/module"
)

// ErrExtractUnavailable is returned when the module handle is empty or has no extract capability
var ErrExtractUnavailable = errors.New("extract function is unavailable")

type Dispatcher struct {
	handle *module.Handle
	logger *zap.Logger
}

func New(handle *module.Handle, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handle: handle,
		logger: logger,
	}
}

// OnMessage implements messaging.Listener. It returns nil for anything other
// than an extraction request.
func (d *Dispatcher) OnMessage(ctx context.Context, msg messaging.Message, sender messaging.Sender) *messaging.Future {
	if msg.Action != messaging.ActionExtractContent {
		return nil
	}

	future := messaging.NewFuture()
	go func() {
		future.Resolve(d.Extract(ctx, msg.Mode))
	}()
	return future
}

// Extract runs one extraction. Failures are logged and reported with the
// sentinel content; the error is kept on the result for local callers.
func (d *Dispatcher) Extract(ctx context.Context, mode string) messaging.Result {
	content, err := d.extract(ctx, mode)
	if err != nil {
		d.logger.Error("extraction error", zap.String("mode", mode), zap.Error(err))
		return messaging.Result{
			Response: messaging.Response{Content: messaging.ExtractionFailed},
			Err:      err,
		}
	}
	return messaging.Result{Response: messaging.Response{Content: content}}
}

func (d *Dispatcher) extract(ctx context.Context, mode string) (content string, err error) {
	exports, ok := d.handle.Get()
	if !ok || !exports.CanExtract() {
		return "", ErrExtractUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract panicked: %v", r)
		}
	}()

	return exports.Extract(ctx, mode)
}
