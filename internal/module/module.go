package module

import (
	"context"
	"errors"
)

var (
	// ErrMissingEntryPoint is returned when an imported module has no default initialization function.
	ErrMissingEntryPoint = errors.New("module entry point not found")

	// ErrModuleNotFound is returned when nothing is registered at a script location.
	ErrModuleNotFound = errors.New("module not found")

	// ErrHandleAlreadySet is returned on a second publish to the same handle.
	ErrHandleAlreadySet = errors.New("module handle already set")
)

// InitOptions is passed to a module's default entry point
type InitOptions struct {
	// ModuleOrPath is the resolved location of the module's payload
	ModuleOrPath string
}

// InitFunc is the default initialization entry point of a module
type InitFunc func(ctx context.Context, opts InitOptions) error

// ExtractFunc returns extracted content for the given mode
type ExtractFunc func(ctx context.Context, mode string) (string, error)

// Exports holds the capabilities an imported module exposes.
// Any field may be nil; callers check before use.
type Exports struct {
	Default InitFunc
	Extract ExtractFunc
}

// CanExtract reports whether the module exposes a callable extract capability
func (e *Exports) CanExtract() bool {
	return e != nil && e.Extract != nil
}
