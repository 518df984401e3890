package content

import (
	"fmt"
	nurl "net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/byteowlz/pagebridge/internal/page"
)

func extractReadability(doc *page.Document) (string, error) {
	pageURL, err := nurl.Parse(doc.URL)
	if err != nil || doc.URL == "" {
		pageURL = nil
	}

	article, err := readability.FromReader(strings.NewReader(doc.HTML), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to process with readability: %w", err)
	}
	return article.TextContent, nil
}

// extractBasic returns the body text with noise elements removed
func extractBasic(doc *page.Document, noise []string) (string, error) {
	q, err := doc.Query()
	if err != nil {
		return "", err
	}

	body := q.Find("body")
	if body.Length() == 0 {
		return "", fmt.Errorf("no body found")
	}

	for _, selector := range noise {
		body.Find(selector).Remove()
	}
	return body.Text(), nil
}

// cleanContent collapses all whitespace runs to single spaces
func cleanContent(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
