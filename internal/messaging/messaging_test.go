package messaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func echoListener() Listener {
	return ListenerFunc(func(_ context.Context, msg Message, _ Sender) *Future {
		if msg.Action != ActionExtractContent {
			return nil
		}
		f := NewFuture()
		go f.Resolve(Result{Response: Response{Content: "mode=" + msg.Mode}})
		return f
	})
}

func TestBus_SendMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus()
	bus.AddListener(echoListener())

	res, err := bus.SendMessage(context.Background(), Message{Action: ActionExtractContent, Mode: "Basic"}, Sender{})
	require.NoError(t, err)
	assert.Equal(t, "mode=Basic", res.Response.Content)
}

func TestBus_NoListenerReplies(t *testing.T) {
	bus := NewBus()
	bus.AddListener(echoListener())

	_, err := bus.SendMessage(context.Background(), Message{Action: "ping"}, Sender{})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestBus_FirstReplyWinsAndAllListenersSeeMessage(t *testing.T) {
	var seen []string
	bus := NewBus()
	bus.AddListener(ListenerFunc(func(_ context.Context, msg Message, _ Sender) *Future {
		seen = append(seen, "first")
		return Resolved(Result{Response: Response{Content: "first"}})
	}))
	bus.AddListener(ListenerFunc(func(_ context.Context, msg Message, _ Sender) *Future {
		seen = append(seen, "second")
		return Resolved(Result{Response: Response{Content: "second"}})
	}))

	res, err := bus.SendMessage(context.Background(), Message{Action: ActionExtractContent}, Sender{})
	require.NoError(t, err)
	assert.Equal(t, "first", res.Response.Content)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestBus_Publish(t *testing.T) {
	var got Message
	bus := NewBus()
	bus.AddListener(ListenerFunc(func(_ context.Context, msg Message, _ Sender) *Future {
		got = msg
		return nil
	}))

	bus.Publish(context.Background(), Message{Action: ActionPageLoaded, URL: "https://example.com"}, Sender{})
	assert.Equal(t, "https://example.com", got.URL)
}

func TestFuture_AwaitContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewFuture().Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_ResolveOnce(t *testing.T) {
	f := NewFuture()
	f.Resolve(Result{Response: Response{Content: "a"}})
	f.Resolve(Result{Response: Response{Content: "b"}})

	res, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", res.Response.Content)
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"a":1}`)))

	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf.Bytes()[:4]))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFrame_Limits(t *testing.T) {
	err := WriteFrame(&bytes.Buffer{}, make([]byte, MaxOutboundSize+1))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(MaxInboundSize+1)))
	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func writeEnvelope(t *testing.T, buf *bytes.Buffer, env Envelope) {
	t.Helper()
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(buf, payload))
}

func TestNative_Serve(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus()
	bus.AddListener(echoListener())

	var in, out bytes.Buffer
	writeEnvelope(t, &in, Envelope{ID: "req-1", Message: &Message{Action: ActionExtractContent, Mode: "Readability"}})
	writeEnvelope(t, &in, Envelope{ID: "req-2", Message: &Message{Action: "ping"}})
	require.NoError(t, WriteFrame(&in, []byte("not json")))

	require.NoError(t, NewNative(&in, &out, bus, nil).Serve(context.Background()))

	frame, err := ReadFrame(&out)
	require.NoError(t, err)

	var reply Envelope
	require.NoError(t, json.Unmarshal(frame, &reply))
	assert.Equal(t, "req-1", reply.ID)
	require.NotNil(t, reply.Response)
	assert.Equal(t, "mode=Readability", reply.Response.Content)

	assert.Zero(t, out.Len(), "ping must not be answered")
}

func TestNative_ServeStopsOnCancelWhileReading(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus()
	bus.AddListener(echoListener())

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer outR.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- NewNative(inR, outW, bus, nil).Serve(ctx)
	}()

	payload, err := json.Marshal(Envelope{ID: "req-1", Message: &Message{Action: ActionExtractContent, Mode: "Basic"}})
	require.NoError(t, err)
	require.NoError(t, WriteFrame(inW, payload))

	frame, err := ReadFrame(outR)
	require.NoError(t, err)
	var reply Envelope
	require.NoError(t, json.Unmarshal(frame, &reply))
	assert.Equal(t, "mode=Basic", reply.Response.Content)

	// input stays open; only cancellation can stop the read
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	inW.Close()
}
