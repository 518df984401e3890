package messaging

import (
	"context"
	"sync"
)

// Future is a reply that resolves exactly once
type Future struct {
	once sync.Once
	done chan struct{}
	res  Result
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that already holds r
func Resolved(r Result) *Future {
	f := NewFuture()
	f.Resolve(r)
	return f
}

// Resolve sets the result. Later calls are ignored.
func (f *Future) Resolve(r Result) {
	f.once.Do(func() {
		f.res = r
		close(f.done)
	})
}

// Done is closed once the future is resolved
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves or ctx is done
func (f *Future) Await(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
