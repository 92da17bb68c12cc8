// Extraction routing: every source (generic web article, tweet, Twitter
// long-form article) is reduced to one normalized document shape before
// the assembly stage sees it.
package main

import "time"

// document is the common output of every extractor. Byline and SiteName
// are optional; the empty string means "not provided".
type document struct {
	Title       string
	ContentHTML string // body fragment, no <html>/<body> wrapper
	PlainText   string // text-only rendering for diagnostics
	Byline      string
	SiteName    string
}

// chapter is the reduced view of a document used when several extractions
// are bound into one book. Order is caller-determined and significant.
type chapter struct {
	Title       string
	HTMLContent string
	Byline      string
}

// extractContent classifies rawURL and dispatches to the matching
// extractor. Tweet URLs (twitter.com/x.com with a /status/ segment) go to
// the tweet extractor; everything else is treated as a web article.
// Extractor errors propagate untouched.
func extractContent(rawURL string, timeout time.Duration, userAgent string) (*document, error) {
	if isTweetURL(rawURL) {
		return extractTweet(rawURL, timeout)
	}
	return extractWebArticle(rawURL, timeout, userAgent)
}
