package page

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register every browser cookie store
)

type BrowserType string

const (
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
	BrowserZen     BrowserType = "zen"
)

// CookieSource supplies cookies to send with a page request
type CookieSource interface {
	Cookies(ctx context.Context, targetURL string) ([]*http.Cookie, error)
}

// BrowserCookies reads cookies from the local browser cookie stores
type BrowserCookies struct {
	browser BrowserType
	exclude []string
}

func NewBrowserCookies(browser string, exclude []string) *BrowserCookies {
	if browser == "" {
		browser = string(BrowserAuto)
	}
	return &BrowserCookies{
		browser: BrowserType(strings.ToLower(browser)),
		exclude: exclude,
	}
}

func (bc *BrowserCookies) Cookies(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" || bc.excluded(host) {
		return nil, nil
	}

	var cookies []*http.Cookie
	for cookie, err := range kooky.TraverseCookies(ctx) {
		if err != nil {
			continue
		}
		if !matchesBrowser(cookie.Browser, bc.browser) || !matchesDomain(cookie.Domain, host) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		})
	}

	return cookies, nil
}

func (bc *BrowserCookies) excluded(host string) bool {
	for _, domain := range bc.exclude {
		if matchesDomain(domain, host) {
			return true
		}
	}
	return false
}

func matchesBrowser(browser kooky.BrowserInfo, want BrowserType) bool {
	if want == BrowserAuto {
		return true
	}
	if browser == nil {
		return false
	}

	name := strings.ToLower(browser.Browser())
	switch want {
	case BrowserChrome:
		return strings.Contains(name, "chrome") || strings.Contains(name, "chromium")
	case BrowserFirefox:
		return strings.Contains(name, "firefox")
	case BrowserSafari:
		return strings.Contains(name, "safari")
	case BrowserZen:
		return strings.Contains(name, "zen") ||
			(strings.Contains(name, "firefox") && strings.Contains(browser.FilePath(), "zen"))
	}
	return false
}

// matchesDomain reports whether a cookie set for cookieDomain applies to host
func matchesDomain(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(strings.ToLower(cookieDomain), ".")
	host = strings.ToLower(host)
	if cookieDomain == "" || host == "" {
		return false
	}
	return host == cookieDomain || strings.HasSuffix(host, "."+cookieDomain)
}
