package page

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the web page a content context is bound to
type Document struct {
	URL    string
	HTML   string
	Title  string
	UsedJS bool
}

// NewDocument wraps raw HTML served from url
func NewDocument(url, html string) *Document {
	return &Document{
		URL:   url,
		HTML:  html,
		Title: titleOf(html),
	}
}

// FromReader reads a document from r
func FromReader(r io.Reader, url string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}
	return NewDocument(url, string(data)), nil
}

// FromFile loads a saved page. The document URL is the file:// location of path.
func FromFile(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return FromReader(f, "file://"+filepath.ToSlash(abs))
}

// Query parses the document for selector queries
func (d *Document) Query() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Count returns how many elements match selector
func (d *Document) Count(selector string) (int, error) {
	doc, err := d.Query()
	if err != nil {
		return 0, err
	}
	return doc.Find(selector).Length(), nil
}

func titleOf(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
