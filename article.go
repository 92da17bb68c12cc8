// Generic web article extraction: structured-data island first, then
// readability-style heuristic content extraction as the fallback.
package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
)

// minArticleChars is the minimum extracted text length for a page to count
// as a real article rather than navigation/ad chrome.
const minArticleChars = 100

// extractWebArticle fetches a URL and reduces it to a normalized document.
// Pages carrying a usable structured-data island skip heuristic extraction
// entirely; the island payload is considered more reliable.
func extractWebArticle(rawURL string, timeout time.Duration, userAgent string) (*document, error) {
	htmlBytes, pageURL, err := fetchHTML(rawURL, timeout, userAgent)
	if err != nil {
		return nil, err
	}

	if doc := extractFromIsland(string(htmlBytes), rawURL); doc != nil {
		fmt.Fprintf(logOut, "Extracted from structured data: %s\n", doc.Title)
		return doc, nil
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err != nil {
		return nil, fmt.Errorf("content extraction failed for %s: %w", rawURL, err)
	}

	if article.Content == "" {
		return nil, fmt.Errorf("no article content found at %s", rawURL)
	}
	if len(strings.TrimSpace(article.TextContent)) < minArticleChars {
		return nil, fmt.Errorf("article at %s too short (less than %d characters of text)", rawURL, minArticleChars)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Article"
	}

	return &document{
		Title:       title,
		ContentHTML: article.Content,
		PlainText:   article.TextContent,
		Byline:      strings.TrimSpace(article.Byline),
		SiteName:    strings.TrimSpace(article.SiteName),
	}, nil
}
