// Package content is the extraction module of a content context. It is bound
// to one page and exposes Readability, Basic and Reader extraction modes.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/module"
	"github.com/byteowlz/pagebridge/internal/page"
)

// Extraction modes
const (
	ModeReadability = "Readability"
	ModeBasic       = "Basic"
	ModeReader      = "Reader"
)

// ErrNotInitialized is returned when Extract runs before the entry point completed
var ErrNotInitialized = errors.New("content module not initialized")

// Emitter publishes notifications from the content context
type Emitter interface {
	Publish(ctx context.Context, msg messaging.Message, sender messaging.Sender)
}

type Module struct {
	doc     *page.Document
	emitter Emitter
	reader  *Reader
	logger  *zap.Logger

	mu    sync.RWMutex
	rules *Rules
}

type Option func(*Module)

func WithEmitter(e Emitter) Option {
	return func(m *Module) { m.emitter = e }
}

// WithReader enables the Reader mode
func WithReader(r *Reader) Option {
	return func(m *Module) { m.reader = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Module) { m.logger = l }
}

func New(doc *page.Document, opts ...Option) *Module {
	m := &Module{
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Exports returns the capabilities the loader imports
func (m *Module) Exports() *module.Exports {
	return &module.Exports{
		Default: m.Init,
		Extract: m.Extract,
	}
}

// Init loads the rules payload and announces the page
func (m *Module) Init(ctx context.Context, opts module.InitOptions) error {
	rules, err := LoadRules(opts.ModuleOrPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.rules = &rules
	m.mu.Unlock()

	m.announce(ctx, rules.CountSelector)
	return nil
}

func (m *Module) announce(ctx context.Context, selector string) {
	if m.emitter == nil {
		return
	}
	sender := messaging.Sender{ID: "content", Origin: m.doc.URL}

	m.emitter.Publish(ctx, messaging.Message{Action: messaging.ActionPageLoaded, URL: m.doc.URL}, sender)

	count, err := m.doc.Count(selector)
	if err != nil {
		m.logger.Warn("failed to count elements", zap.String("selector", selector), zap.Error(err))
		return
	}
	m.emitter.Publish(ctx, messaging.Message{Action: messaging.ActionElementFound, Selector: selector, Count: count}, sender)
}

// Extract returns the page content for mode. Mode names are case-insensitive.
func (m *Module) Extract(ctx context.Context, mode string) (string, error) {
	m.mu.RLock()
	rules := m.rules
	m.mu.RUnlock()

	if rules == nil {
		return "", ErrNotInitialized
	}

	m.logger.Debug("extraction mode", zap.String("mode", mode))

	var (
		text string
		err  error
	)
	switch {
	case strings.EqualFold(mode, ModeReadability):
		text, err = extractReadability(m.doc)
	case strings.EqualFold(mode, ModeBasic):
		text, err = extractBasic(m.doc, rules.NoiseSelectors)
	case strings.EqualFold(mode, ModeReader):
		if m.reader == nil {
			return "", fmt.Errorf("reader mode is not configured")
		}
		text, err = m.reader.Read(ctx, m.doc.URL)
	default:
		return "", fmt.Errorf("invalid extraction mode: %s", mode)
	}
	if err != nil {
		return "", err
	}

	text = cleanContent(text)
	if rules.MinContentLength > 0 && len(text) < rules.MinContentLength {
		return "", fmt.Errorf("content too short: %d characters (minimum: %d)", len(text), rules.MinContentLength)
	}
	return text, nil
}
