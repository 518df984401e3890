package module

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Target names the script and binary payload of a module, relative to the
// extension root.
type Target struct {
	Script  string
	Payload string
}

// Loader imports and initializes modules. The content and popup contexts
// share it and differ only in their target and whether a handle is given.
type Loader struct {
	resolver *Resolver
	registry *Registry
	logger   *zap.Logger
}

func NewLoader(resolver *Resolver, registry *Registry, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		resolver: resolver,
		registry: registry,
		logger:   logger,
	}
}

// Load resolves the payload and script, imports the module, runs its default
// entry point and, when handle is non-nil, publishes the exports to it.
// Failures are logged and returned; nothing is retried and the handle stays unset.
func (l *Loader) Load(ctx context.Context, target Target, handle *Handle) error {
	err := l.load(ctx, target, handle)
	if err != nil {
		l.logger.Error("failed to initialize module",
			zap.String("script", target.Script),
			zap.Error(err))
	}
	return err
}

func (l *Loader) load(ctx context.Context, target Target, handle *Handle) error {
	payload := l.resolver.GetURL(target.Payload)
	script := l.resolver.GetURL(target.Script)

	exports, err := l.registry.Import(ctx, script)
	if err != nil {
		return err
	}

	if exports.Default == nil {
		return fmt.Errorf("%w: %s", ErrMissingEntryPoint, script)
	}

	if err := exports.Default(ctx, InitOptions{ModuleOrPath: payload}); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", script, err)
	}

	l.logger.Debug("module initialized",
		zap.String("script", script),
		zap.String("payload", payload))

	if handle == nil {
		return nil
	}
	return handle.Set(exports)
}

// Start runs Load in the background. The returned channel yields the load
// result once and is then closed.
func (l *Loader) Start(ctx context.Context, target Target, handle *Handle) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.Load(ctx, target, handle)
	}()
	return done
}
