package messaging

import (
	"context"
	"errors"
)

// Actions understood by the bridge
const (
	ActionExtractContent = "extractContent"
	ActionPageLoaded     = "pageLoaded"
	ActionElementFound   = "elementFound"
)

// ExtractionFailed is the content sent back when extraction cannot produce a result
const ExtractionFailed = "Extraction failed"

var (
	// ErrNoResponse is returned when no listener kept the channel open for a reply
	ErrNoResponse = errors.New("the message port closed before a response was received")

	// ErrMessageTooLarge is returned by the native transport for oversized frames
	ErrMessageTooLarge = errors.New("message exceeds size limit")
)

// Message is what travels over a transport. Only the fields relevant to the
// action are set.
type Message struct {
	Action   string `json:"action"`
	Mode     string `json:"mode,omitempty"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// Response is the wire reply to an extraction request
type Response struct {
	Content string `json:"content"`
}

// Result is a reply with its failure, if any. Err is for local callers and
// logging; only Response crosses the transport.
type Result struct {
	Response Response
	Err      error
}

// Sender identifies where a message came from
type Sender struct {
	ID     string
	Origin string
}

// Listener handles a message. Returning a non-nil future means a reply will
// follow; nil means the message was not handled.
type Listener interface {
	OnMessage(ctx context.Context, msg Message, sender Sender) *Future
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, msg Message, sender Sender) *Future

func (f ListenerFunc) OnMessage(ctx context.Context, msg Message, sender Sender) *Future {
	return f(ctx, msg, sender)
}
