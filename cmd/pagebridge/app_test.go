package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/config"
	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/popup"
)

const fixture = `<html><head><title>Fixture</title></head><body>
<nav>Home | About</nav>
<div><p>Hello   world from the page body.</p></div>
<div class="ads">Buy now</div>
<footer>Copyright</footer>
</body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Extension.Root = filepath.Join(t.TempDir(), "extension")
	return cfg
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0644))
	return path
}

func TestEnsureExtension(t *testing.T) {
	cfg := testConfig(t)

	created, err := ensureExtension(cfg)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.FileExists(t, filepath.Join(cfg.Extension.Root, "content_rules.yaml"))
	assert.FileExists(t, filepath.Join(cfg.Extension.Root, "popup_settings.yaml"))

	created, err = ensureExtension(cfg)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestApp_ExtractFromLocalPage(t *testing.T) {
	cfg := testConfig(t)
	_, err := ensureExtension(cfg)
	require.NoError(t, err)

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	doc, err := a.loadPage(ctx, writePage(t))
	require.NoError(t, err)
	assert.Equal(t, "Fixture", doc.Title)

	require.NoError(t, <-a.startContent(ctx, doc))

	client := popup.NewClient(a.bus)

	text, err := client.Extract(ctx, "Basic")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello world from the page body.")
	assert.NotContains(t, text, "Buy now")
	assert.NotContains(t, text, "Copyright")

	text, err = client.Extract(ctx, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, messaging.ExtractionFailed, text)
}

func TestApp_ExtractBeforeLoad(t *testing.T) {
	a, err := newApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	text, err := popup.NewClient(a.bus).Extract(context.Background(), "Basic")
	require.NoError(t, err)
	assert.Equal(t, messaging.ExtractionFailed, text)
}

func TestApp_ContentMissingPayload(t *testing.T) {
	a, err := newApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	doc, err := a.loadPage(context.Background(), writePage(t))
	require.NoError(t, err)

	assert.Error(t, <-a.startContent(context.Background(), doc))
	_, ok := a.handle.Get()
	assert.False(t, ok)
}

func TestApp_StartPopup(t *testing.T) {
	cfg := testConfig(t)
	_, err := ensureExtension(cfg)
	require.NoError(t, err)

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)

	model, err := a.startPopup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Readability", model.(popup.Model).Mode())

	// the popup never populates the content handle
	_, ok := a.handle.Get()
	assert.False(t, ok)
}

func TestLoadPage_MissingFile(t *testing.T) {
	a, err := newApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	_, err = a.loadPage(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
