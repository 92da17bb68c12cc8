// Structured-data island extraction: some publishing platforms embed the
// full post as JSON in a framework-injected <script> blob. When present it
// is more reliable than heuristic DOM extraction, so it runs as a
// best-effort pre-check. Every failure here signals "not applicable" (nil)
// rather than an error; the caller falls through to readability.
package main

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// islandState mirrors the framework state blob down the fixed path to the
// post payload. Everything else in the blob is ignored.
type islandState struct {
	Props struct {
		PageProps struct {
			Post *islandPost `json:"post"`
		} `json:"pageProps"`
	} `json:"props"`
}

type islandPost struct {
	Title   string `json:"title"`
	Content string `json:"content"` // restricted markdown dialect
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

var rootRelAttrRe = regexp.MustCompile(`(src|href)="(/[^"]*)"`)

// extractFromIsland looks for the embedded JSON state blob and renders its
// post content. Returns nil when the page has no usable island.
func extractFromIsland(htmlStr string, baseURL string) *document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	raw := doc.Find(`script#__NEXT_DATA__[type="application/json"]`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var state islandState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil
	}

	post := state.Props.PageProps.Post
	if post == nil || strings.TrimSpace(post.Content) == "" {
		return nil
	}

	contentHTML := renderMiniMarkdown(post.Content)
	contentHTML = resolveRootRelativeURLs(contentHTML, baseURL)

	var authors []string
	for _, a := range post.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = "Article"
	}

	return &document{
		Title:       title,
		ContentHTML: contentHTML,
		PlainText:   post.Content,
		Byline:      strings.Join(authors, ", "),
	}
}

// resolveRootRelativeURLs rewrites root-relative src/href attribute values
// against the origin of baseURL. Absolute and protocol-relative URLs are
// left untouched. If baseURL is empty or unparseable, the HTML is returned
// unchanged.
func resolveRootRelativeURLs(htmlStr string, baseURL string) string {
	if baseURL == "" {
		return htmlStr
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return htmlStr
	}
	origin := base.Scheme + "://" + base.Host

	return rootRelAttrRe.ReplaceAllStringFunc(htmlStr, func(match string) string {
		parts := rootRelAttrRe.FindStringSubmatch(match)
		if parts == nil || strings.HasPrefix(parts[2], "//") {
			return match
		}
		return parts[1] + `="` + origin + parts[2] + `"`
	})
}
