package messaging

import (
	"context"
	"sync"
)

// Bus is the in-process transport connecting extension contexts
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

// AddListener registers l for every subsequent message
func (b *Bus) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Listener(nil), b.listeners...)
}

// Request offers msg to every listener and returns the first future a
// listener kept open. Listeners after that one still see the message.
func (b *Bus) Request(ctx context.Context, msg Message, sender Sender) (*Future, error) {
	var reply *Future
	for _, l := range b.snapshot() {
		if f := l.OnMessage(ctx, msg, sender); f != nil && reply == nil {
			reply = f
		}
	}
	if reply == nil {
		return nil, ErrNoResponse
	}
	return reply, nil
}

// SendMessage delivers msg and waits for the reply
func (b *Bus) SendMessage(ctx context.Context, msg Message, sender Sender) (Result, error) {
	f, err := b.Request(ctx, msg, sender)
	if err != nil {
		return Result{}, err
	}
	return f.Await(ctx)
}

// Publish delivers a notification; replies are not awaited
func (b *Bus) Publish(ctx context.Context, msg Message, sender Sender) {
	for _, l := range b.snapshot() {
		l.OnMessage(ctx, msg, sender)
	}
}
