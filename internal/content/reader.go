package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultReaderURL = "https://r.jina.ai/"

// Reader extracts page content through a remote reader service (Jina Reader API)
type Reader struct {
	APIKey  string // optional, raises rate limits
	BaseURL string
	client  *http.Client
}

func NewReader(apiKey, baseURL string, timeout time.Duration) *Reader {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if baseURL == "" {
		baseURL = defaultReaderURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Reader{
		APIKey:  apiKey,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Read returns the plain text of pageURL as rendered by the reader service
func (r *Reader) Read(ctx context.Context, pageURL string) (string, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return "", fmt.Errorf("reader: page %q is not served over http", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("reader: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reader: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("reader: authentication error: %s", strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("reader: rate limited - consider adding an API key")
	default:
		return "", fmt.Errorf("reader: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return stripMarkdown(readerBody(string(body))), nil
}

// readerBody drops the Title:/URL Source: header the service puts before the content
func readerBody(content string) string {
	const marker = "Markdown Content:"
	if idx := strings.Index(content, marker); idx != -1 {
		return strings.TrimSpace(content[idx+len(marker):])
	}
	return content
}

func stripMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, "#")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "__", "")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
