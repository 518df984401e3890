package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type FetchMode string

const (
	FetchModeAuto   FetchMode = "auto"
	FetchModeStatic FetchMode = "static"
	FetchModeJS     FetchMode = "javascript"
)

// ParseFetchMode maps the enable_javascript setting (auto, always, never) to a mode
func ParseFetchMode(s string) FetchMode {
	switch strings.ToLower(s) {
	case "always", "javascript", "js":
		return FetchModeJS
	case "never", "static":
		return FetchModeStatic
	default:
		return FetchModeAuto
	}
}

type Options struct {
	Mode            FetchMode
	Timeout         time.Duration
	JSTimeout       time.Duration // Chrome rendering; falls back to Timeout
	UserAgent       string
	BrowserAgent    string
	WaitForSelector string
}

// Renderer loads a page in a real browser
type Renderer interface {
	Render(ctx context.Context, url string, cookies []*http.Cookie, opts Options) (*Document, error)
}

const (
	defaultRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = 5 * time.Second
)

// StatusError reports an HTTP error response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "HTTP error: " + e.Status
}

// Retryable reports whether another attempt could succeed
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type Fetcher struct {
	client        *http.Client
	renderer      Renderer
	cookies       CookieSource
	logger        *zap.Logger
	retryInterval time.Duration
	noRedirects   bool
}

type FetcherOption func(*Fetcher)

// WithRenderer replaces the Chrome renderer
func WithRenderer(r Renderer) FetcherOption {
	return func(f *Fetcher) { f.renderer = r }
}

// WithCookies sends cookies from src with every request
func WithCookies(src CookieSource) FetcherOption {
	return func(f *Fetcher) { f.cookies = src }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithoutRedirects stops the client from following redirects. It applies to
// whichever client is configured, regardless of option order.
func WithoutRedirects() FetcherOption {
	return func(f *Fetcher) { f.noRedirects = true }
}

func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithRetryInterval sets the first backoff interval of FetchWithRetry
func WithRetryInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.retryInterval = d }
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: 30 * time.Second},
		renderer:      ChromeRenderer{},
		logger:        zap.NewNop(),
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noRedirects {
		client := *f.client
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		f.client = &client
	}
	return f
}

// Fetch loads url. Auto mode fetches statically first and renders in Chrome
// only when the static document looks script-driven.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*Document, error) {
	cookies := f.cookiesFor(ctx, url)

	if opts.Mode == FetchModeJS {
		return f.renderer.Render(ctx, url, cookies, opts)
	}

	doc, err := f.fetchStatic(ctx, url, cookies, opts)
	if err != nil {
		return nil, err
	}

	if opts.Mode == FetchModeAuto && NeedsJSRendering(doc.HTML) {
		f.logger.Debug("static page looks script-driven, rendering in Chrome", zap.String("url", url))
		rendered, err := f.renderer.Render(ctx, url, cookies, opts)
		if err != nil {
			f.logger.Warn("chrome rendering failed, keeping static page", zap.String("url", url), zap.Error(err))
			return doc, nil
		}
		return rendered, nil
	}

	return doc, nil
}

// FetchWithRetry calls Fetch up to attempts times with exponential backoff.
// Client errors other than 429 are not retried.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string, opts Options, attempts int) (*Document, error) {
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxInterval = maxRetryInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	var (
		doc     *Document
		attempt int
	)
	err := backoff.Retry(func() error {
		attempt++
		var err error
		doc, err = f.Fetch(ctx, url, opts)
		if err == nil {
			return nil
		}
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) cookiesFor(ctx context.Context, url string) []*http.Cookie {
	if f.cookies == nil {
		return nil
	}
	cookies, err := f.cookies.Cookies(ctx, url)
	if err != nil {
		// cookies are best effort
		f.logger.Debug("cookie lookup failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	return cookies
}

func (f *Fetcher) fetchStatic(ctx context.Context, url string, cookies []*http.Cookie, opts Options) (*Document, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = UserAgent(opts.BrowserAgent)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")

	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return NewDocument(url, string(body)), nil
}

// NeedsJSRendering guesses whether html is a client-rendered shell
func NeedsJSRendering(html string) bool {
	doc := NewDocument("", html)
	q, err := doc.Query()
	if err != nil {
		return false
	}

	if q.Find("[data-reactroot], [ng-app], [v-app], #__next, #root:empty, #app:empty").Length() > 0 {
		return true
	}

	bodyText := strings.TrimSpace(q.Find("body").Text())
	scripts := q.Find("script").Length()

	if strings.Contains(strings.ToLower(bodyText), "loading") && len(bodyText) < 200 {
		return true
	}
	return scripts > 5 && len(bodyText) < 1000
}

// ChromeRenderer renders pages with a headless Chrome through chromedp
type ChromeRenderer struct{}

func (ChromeRenderer) Render(ctx context.Context, url string, cookies []*http.Cookie, opts Options) (*Document, error) {
	chromeCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeout := opts.JSTimeout
	if timeout <= 0 {
		timeout = opts.Timeout
	}
	if timeout > 0 {
		chromeCtx, cancel = context.WithTimeout(chromeCtx, timeout)
		defer cancel()
	}

	var tasks chromedp.Tasks
	if opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	if len(cookies) > 0 {
		tasks = append(tasks, setCookies(url, cookies))
	}

	tasks = append(tasks, chromedp.Navigate(url))
	if opts.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitForSelector))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}

	var html, title string
	tasks = append(tasks,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	if err := chromedp.Run(chromeCtx, tasks); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("chrome rendering timed out after %s: %w", timeout, err)
		}
		return nil, fmt.Errorf("failed to run Chrome tasks: %w", err)
	}

	return &Document{
		URL:    url,
		HTML:   html,
		Title:  title,
		UsedJS: true,
	}, nil
}

func setCookies(url string, cookies []*http.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			params := network.SetCookie(c.Name, c.Value).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HttpOnly)
			if c.Domain != "" {
				params = params.WithDomain(c.Domain)
			} else {
				params = params.WithURL(url)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
