package module

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, registry *Registry) *Loader {
	t.Helper()
	resolver, err := NewResolver("chrome-extension://abcdef/")
	require.NoError(t, err)
	return NewLoader(resolver, registry, nil)
}

func TestLoader_Load_PublishesHandle(t *testing.T) {
	var gotPath string
	var steps []string

	registry := NewRegistry()
	registry.Register("content.js", func(context.Context) (*Exports, error) {
		steps = append(steps, "import")
		return &Exports{
			Default: func(_ context.Context, opts InitOptions) error {
				steps = append(steps, "init")
				gotPath = opts.ModuleOrPath
				return nil
			},
			Extract: func(context.Context, string) (string, error) { return "x", nil },
		}, nil
	})

	handle := NewHandle()
	err := newTestLoader(t, registry).Load(context.Background(), Target{Script: "content.js", Payload: "content_bg.wasm"}, handle)
	require.NoError(t, err)

	assert.Equal(t, []string{"import", "init"}, steps)
	assert.Equal(t, "chrome-extension://abcdef/content_bg.wasm", gotPath)

	exports, ok := handle.Get()
	require.True(t, ok)
	assert.True(t, exports.CanExtract())

	select {
	case <-handle.Ready():
	default:
		t.Fatal("handle should be ready")
	}
}

func TestLoader_Load_MissingEntryPoint(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterExports("content.js", &Exports{
		Extract: func(context.Context, string) (string, error) { return "", nil },
	})

	handle := NewHandle()
	err := newTestLoader(t, registry).Load(context.Background(), Target{Script: "content.js", Payload: "content_bg.wasm"}, handle)
	require.ErrorIs(t, err, ErrMissingEntryPoint)

	_, ok := handle.Get()
	assert.False(t, ok, "handle must stay unset")
}

func TestLoader_Load_InitFailure(t *testing.T) {
	boom := errors.New("boom")
	registry := NewRegistry()
	registry.RegisterExports("content.js", &Exports{
		Default: func(context.Context, InitOptions) error { return boom },
	})

	handle := NewHandle()
	err := newTestLoader(t, registry).Load(context.Background(), Target{Script: "content.js", Payload: "p"}, handle)
	require.ErrorIs(t, err, boom)

	_, ok := handle.Get()
	assert.False(t, ok)
}

func TestLoader_Load_UnknownModule(t *testing.T) {
	err := newTestLoader(t, NewRegistry()).Load(context.Background(), Target{Script: "missing.js"}, nil)
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestLoader_Load_NilHandleDoesNotPublish(t *testing.T) {
	initialized := false
	registry := NewRegistry()
	registry.RegisterExports("popup.js", &Exports{
		Default: func(context.Context, InitOptions) error {
			initialized = true
			return nil
		},
	})

	err := newTestLoader(t, registry).Load(context.Background(), Target{Script: "popup.js", Payload: "popup_bg.wasm"}, nil)
	require.NoError(t, err)
	assert.True(t, initialized)
}

func TestLoader_Start(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterExports("content.js", &Exports{
		Default: func(context.Context, InitOptions) error { return nil },
	})

	handle := NewHandle()
	done := newTestLoader(t, registry).Start(context.Background(), Target{Script: "content.js"}, handle)

	require.NoError(t, <-done)
	_, ok := handle.Get()
	assert.True(t, ok)

	_, open := <-done
	assert.False(t, open, "done channel should be closed after the result")
}

func TestHandle_SetOnce(t *testing.T) {
	h := NewHandle()
	require.NoError(t, h.Set(&Exports{}))
	assert.ErrorIs(t, h.Set(&Exports{}), ErrHandleAlreadySet)
}

func TestResolver_GetURL(t *testing.T) {
	r, err := NewResolver("chrome-extension://abcdef")
	require.NoError(t, err)

	assert.Equal(t, "chrome-extension://abcdef/", r.Base())
	assert.Equal(t, "chrome-extension://abcdef/content.js", r.GetURL("content.js"))
	assert.Equal(t, "chrome-extension://abcdef/wasm/content_bg.wasm", r.GetURL("/wasm/content_bg.wasm"))
}

func TestResolver_LocalPath(t *testing.T) {
	dir := t.TempDir()
	r, err := NewResolver(dir)
	require.NoError(t, err)

	loc := r.GetURL("rules.yaml")
	assert.Contains(t, loc, "file://")
	assert.Equal(t, "rules.yaml", filepath.Base(LocalPath(loc)))
	assert.Equal(t, "https://example.com/x", LocalPath("https://example.com/x"))
}

