package module

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// Factory builds the exports of a module when it is imported
type Factory func(ctx context.Context) (*Exports, error)

// Registry maps script locations to module factories. Importing a location
// runs its factory; modules are resolved by the base name of the location so
// that the same registry serves any extension root.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register makes a module importable under name (e.g. "content.js")
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// RegisterExports registers a module whose exports are already built
func (r *Registry) RegisterExports(name string, exports *Exports) {
	r.Register(name, func(context.Context) (*Exports, error) {
		return exports, nil
	})
}

// Import resolves location to a registered module and builds its exports
func (r *Registry) Import(ctx context.Context, location string) (*Exports, error) {
	r.mu.RLock()
	factory, ok := r.factories[location]
	if !ok {
		factory, ok = r.factories[path.Base(location)]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, location)
	}

	exports, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", location, err)
	}
	if exports == nil {
		exports = &Exports{}
	}
	return exports, nil
}
