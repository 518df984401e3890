package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/module"
	"github.com/byteowlz/pagebridge/internal/page"
)

const paragraph = "The harbour town woke slowly as the fishing boats returned with the morning catch, " +
	"and the market stalls filled with voices, crates, and the smell of salt and diesel."

var fixtureHTML = `<html><head><title>Harbour Morning</title></head><body>
<nav><a href="/">Home</a> <a href="/news">News</a></nav>
<header>Site Header</header>
<div class="ad">Buy now</div>
<article>
  <h1>Harbour Morning</h1>
  <p>` + paragraph + `</p>
  <p>` + paragraph + `</p>
  <p>` + paragraph + `</p>
  <p>` + paragraph + `</p>
</article>
<script>var tracking = true;</script>
<footer>Subscribe to our newsletter</footer>
</body></html>`

type recordingEmitter struct {
	msgs []messaging.Message
}

func (r *recordingEmitter) Publish(_ context.Context, msg messaging.Message, _ messaging.Sender) {
	r.msgs = append(r.msgs, msg)
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func initModule(t *testing.T, m *Module) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content_rules.yaml")
	require.NoError(t, WriteDefaultRules(path))
	require.NoError(t, m.Init(context.Background(), module.InitOptions{ModuleOrPath: "file://" + filepath.ToSlash(path)}))
}

func TestModule_ExtractBeforeInit(t *testing.T) {
	m := New(page.NewDocument("https://example.com", fixtureHTML))
	_, err := m.Extract(context.Background(), ModeBasic)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestModule_InitAnnouncesPage(t *testing.T) {
	emitter := &recordingEmitter{}
	m := New(page.NewDocument("https://example.com/harbour", fixtureHTML), WithEmitter(emitter))
	initModule(t, m)

	require.Len(t, emitter.msgs, 2)
	assert.Equal(t, messaging.Message{Action: messaging.ActionPageLoaded, URL: "https://example.com/harbour"}, emitter.msgs[0])
	assert.Equal(t, messaging.Message{Action: messaging.ActionElementFound, Selector: "div", Count: 1}, emitter.msgs[1])
}

func TestModule_InitMissingPayload(t *testing.T) {
	m := New(page.NewDocument("https://example.com", fixtureHTML))
	err := m.Init(context.Background(), module.InitOptions{ModuleOrPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)

	_, err = m.Extract(context.Background(), ModeBasic)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestModule_ExtractBasic(t *testing.T) {
	m := New(page.NewDocument("https://example.com", fixtureHTML))
	initModule(t, m)

	text, err := m.Extract(context.Background(), ModeBasic)
	require.NoError(t, err)

	assert.Contains(t, text, paragraph)
	assert.NotContains(t, text, "Site Header")
	assert.NotContains(t, text, "Buy now")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "newsletter")
	assert.NotContains(t, text, "  ")
	assert.NotContains(t, text, "\n")
}

func TestModule_ExtractReadability(t *testing.T) {
	m := New(page.NewDocument("https://example.com/harbour", fixtureHTML))
	initModule(t, m)

	text, err := m.Extract(context.Background(), "readability")
	require.NoError(t, err)

	assert.Contains(t, text, "fishing boats returned")
	assert.NotContains(t, text, "\n")
}

func TestModule_ExtractInvalidMode(t *testing.T) {
	m := New(page.NewDocument("https://example.com", fixtureHTML))
	initModule(t, m)

	_, err := m.Extract(context.Background(), "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction mode: summary")

	_, err = m.Extract(context.Background(), ModeReader)
	assert.Error(t, err, "reader mode needs a configured reader")
}

func TestModule_MinContentLength(t *testing.T) {
	m := New(page.NewDocument("https://example.com", `<html><body><p>short</p></body></html>`))
	path := writeRules(t, "min_content_length: 50\n")
	require.NoError(t, m.Init(context.Background(), module.InitOptions{ModuleOrPath: path}))

	_, err := m.Extract(context.Background(), ModeBasic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content too short")
}

func TestModule_ExtractReader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/https://example.com/harbour"), r.URL.Path)
		w.Write([]byte("Title: Harbour Morning\n\nURL Source: https://example.com/harbour\n\nMarkdown Content:\n# Harbour Morning\n\n**Boats** returned."))
	}))
	defer server.Close()

	m := New(page.NewDocument("https://example.com/harbour", fixtureHTML),
		WithReader(NewReader("", server.URL, 5*time.Second)))
	initModule(t, m)

	text, err := m.Extract(context.Background(), ModeReader)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Morning Boats returned.", text)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(writeRules(t, "noise_selectors: [\".promo\"]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{".promo"}, rules.NoiseSelectors)
	assert.Equal(t, "div", rules.CountSelector)

	_, err = LoadRules(writeRules(t, "noise_selectors: [unclosed"))
	assert.Error(t, err)
}

func TestCleanContent(t *testing.T) {
	assert.Equal(t, "a b c", cleanContent("  a\n\n b\t c  "))
	assert.Equal(t, "", cleanContent(" \n "))
}
