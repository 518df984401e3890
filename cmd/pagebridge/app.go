package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/background"
	"github.com/byteowlz/pagebridge/internal/config"
	"github.com/byteowlz/pagebridge/internal/content"
	"github.com/byteowlz/pagebridge/internal/dispatch"
	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/module"
	"github.com/byteowlz/pagebridge/internal/page"
	"github.com/byteowlz/pagebridge/internal/popup"
)

// app wires both execution contexts to one bus. The content context holds
// the extraction module handle; the popup context only talks over the bus.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	bus      *messaging.Bus
	handle   *module.Handle
	registry *module.Registry
	loader   *module.Loader
	fetcher  *page.Fetcher
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	resolver, err := module.NewResolver(cfg.Extension.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid extension root: %w", err)
	}

	registry := module.NewRegistry()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		bus:      messaging.NewBus(),
		handle:   module.NewHandle(),
		registry: registry,
		loader:   module.NewLoader(resolver, registry, logger),
		fetcher:  newFetcher(cfg, logger),
	}

	a.bus.AddListener(dispatch.New(a.handle, logger.Named("dispatch")))
	a.bus.AddListener(background.New(logger.Named("background")))
	return a, nil
}

func newFetcher(cfg *config.Config, logger *zap.Logger) *page.Fetcher {
	opts := []page.FetcherOption{page.WithLogger(logger.Named("page"))}
	if cfg.Browser.Cookies.Enabled {
		opts = append(opts, page.WithCookies(page.NewBrowserCookies(cfg.Browser.Default, cfg.Browser.Cookies.Exclude)))
	}
	if !cfg.Network.FollowRedirects {
		opts = append(opts, page.WithoutRedirects())
	}
	return page.NewFetcher(opts...)
}

func fetchOptions(cfg *config.Config) page.Options {
	return page.Options{
		Mode:            page.ParseFetchMode(cfg.Extraction.EnableJavaScript),
		Timeout:         time.Duration(cfg.Network.Timeout) * time.Second,
		JSTimeout:       time.Duration(cfg.Extraction.JSTimeout) * time.Second,
		UserAgent:       cfg.Network.UserAgent,
		BrowserAgent:    cfg.Network.BrowserAgent,
		WaitForSelector: cfg.Extraction.WaitForSelector,
	}
}

// loadPage opens target as a URL or, failing that, as a local HTML file
func (a *app) loadPage(ctx context.Context, target string) (*page.Document, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		doc, err := a.fetcher.FetchWithRetry(ctx, target, fetchOptions(a.cfg), a.cfg.Network.Retries)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page: %w", err)
		}
		return doc, nil
	}

	doc, err := page.FromFile(module.LocalPath(target))
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return doc, nil
}

func (a *app) readerAPIKey() string {
	if key := os.Getenv("JINA_API_KEY"); key != "" {
		return key
	}
	return a.cfg.Extraction.Reader.APIKey
}

// startContent binds the content module to doc and starts its loader
func (a *app) startContent(ctx context.Context, doc *page.Document) <-chan error {
	ext := a.cfg.Extension
	reader := content.NewReader(a.readerAPIKey(), a.cfg.Extraction.Reader.BaseURL,
		time.Duration(a.cfg.Network.Timeout)*time.Second)

	a.registry.Register(path.Base(ext.ContentScript), func(context.Context) (*module.Exports, error) {
		return content.New(doc,
			content.WithEmitter(a.bus),
			content.WithReader(reader),
			content.WithLogger(a.logger.Named("content")),
		).Exports(), nil
	})

	return a.loader.Start(ctx, module.Target{Script: ext.ContentScript, Payload: ext.ContentPayload}, a.handle)
}

// startPopup loads the popup module and returns the surface it mounted
func (a *app) startPopup(ctx context.Context) (tea.Model, error) {
	ext := a.cfg.Extension
	var mounted tea.Model

	a.registry.RegisterExports(path.Base(ext.PopupScript), popup.New(popup.NewClient(a.bus), func(m tea.Model) {
		mounted = m
	}))

	if err := a.loader.Load(ctx, module.Target{Script: ext.PopupScript, Payload: ext.PopupPayload}, nil); err != nil {
		return nil, err
	}
	if mounted == nil {
		return nil, fmt.Errorf("popup module mounted no surface")
	}
	return mounted, nil
}

// ensureExtension writes the default payloads into the extension root when
// they are missing
func ensureExtension(cfg *config.Config) ([]string, error) {
	var created []string
	ext := cfg.Extension
	root := module.LocalPath(ext.Root)

	rulesPath := filepath.Join(root, filepath.FromSlash(ext.ContentPayload))
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		if err := content.WriteDefaultRules(rulesPath); err != nil {
			return created, err
		}
		created = append(created, rulesPath)
	}

	settingsPath := filepath.Join(root, filepath.FromSlash(ext.PopupPayload))
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := popup.WriteDefaultSettings(settingsPath); err != nil {
			return created, err
		}
		created = append(created, settingsPath)
	}

	return created, nil
}
