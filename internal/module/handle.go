package module

import "sync"

// Handle is a write-once, read-many reference to an initialized module.
// The loader publishes into it and dispatchers read from it.
type Handle struct {
	mu      sync.RWMutex
	exports *Exports
	ready   chan struct{}
}

func NewHandle() *Handle {
	return &Handle{ready: make(chan struct{})}
}

// Set publishes exports. Only the first call succeeds.
func (h *Handle) Set(exports *Exports) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.exports != nil {
		return ErrHandleAlreadySet
	}
	if exports == nil {
		exports = &Exports{}
	}
	h.exports = exports
	close(h.ready)
	return nil
}

// Get returns the published exports, if any
func (h *Handle) Get() (*Exports, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exports, h.exports != nil
}

// Ready is closed once exports have been published
func (h *Handle) Ready() <-chan struct{} {
	return h.ready
}
