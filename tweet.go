// Tweet and Twitter-article extraction via the fxtwitter JSON API.
// Long-form articles arrive as a rich-text block list plus an entity map;
// short tweets are plain text with optional photos and a quoted tweet.
// Both are rendered to the same normalized document shape as web articles.
package main

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// tweetAPIBase is a var so tests can point it at a local server.
var tweetAPIBase = "https://api.fxtwitter.com"

const tweetSiteName = "Twitter"

var tweetPathRe = regexp.MustCompile(`^/([A-Za-z0-9_]+)/status/(\d+)`)

// isTweetURL reports whether rawURL is a tweet permalink: a twitter.com or
// x.com host and a /status/ path segment. Both conditions are required.
func isTweetURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host != "twitter.com" && host != "x.com" &&
		!strings.HasSuffix(host, ".twitter.com") && !strings.HasSuffix(host, ".x.com") {
		return false
	}
	return strings.Contains(u.Path, "/status/")
}

// parseTweetURL extracts the author handle and tweet id from a permalink.
func parseTweetURL(rawURL string) (handle, id string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid tweet URL %q: %w", rawURL, err)
	}
	m := tweetPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", fmt.Errorf("could not parse tweet URL %q", rawURL)
	}
	return m[1], m[2], nil
}

// API response shapes. Only the fields the renderer needs are declared.

type tweetAPIResponse struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Tweet   *apiTweet `json:"tweet"`
}

type apiTweet struct {
	URL     string      `json:"url"`
	Text    string      `json:"text"`
	Author  *apiAuthor  `json:"author"`
	Media   *apiMedia   `json:"media"`
	Quote   *apiTweet   `json:"quote"`
	Article *apiArticle `json:"article"`
}

type apiAuthor struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

type apiMedia struct {
	Photos []apiPhoto `json:"photos"`
}

type apiPhoto struct {
	URL string `json:"url"`
}

type apiArticle struct {
	Title         string           `json:"title"`
	Content       *apiRichText     `json:"content"`
	MediaEntities []apiMediaEntity `json:"media_entities"`
	CoverMedia    *apiMediaEntity  `json:"cover_media"`
}

type apiRichText struct {
	Blocks    []apiBlock           `json:"blocks"`
	EntityMap map[string]apiEntity `json:"entityMap"`
}

type apiBlock struct {
	Type         string           `json:"type"`
	Text         string           `json:"text"`
	EntityRanges []apiEntityRange `json:"entityRanges"`
}

type apiEntityRange struct {
	Key int `json:"key"`
}

type apiEntity struct {
	Type string        `json:"type"`
	Data apiEntityData `json:"data"`
}

type apiEntityData struct {
	MediaItems []apiMediaItem `json:"mediaItems"`
	TweetID    string         `json:"tweetId"`
}

type apiMediaItem struct {
	MediaID string `json:"mediaId"`
}

type apiMediaEntity struct {
	MediaID   string       `json:"media_id"`
	MediaInfo apiMediaInfo `json:"media_info"`
}

type apiMediaInfo struct {
	OriginalImgURL string `json:"original_img_url"`
}

// quoteRef is the resolved summary of a referenced tweet, used to render a
// styled blockquote inline in an article.
type quoteRef struct {
	Author string
	Handle string
	Text   string
	Title  string
	URL    string
}

// entityGraph holds the per-extraction lookup tables for "atomic" blocks.
// All lookups are best-effort: a missing key drops the block, it never
// fails the extraction.
type entityGraph struct {
	mediaRefs map[string]string    // entity key -> media asset id
	dividers  map[string]bool      // entity key -> divider marker
	mediaURLs map[string]string    // media asset id -> image URL
	quotes    map[string]*quoteRef // entity key -> resolved quoted tweet
}

// imageURL resolves an entity key to an image URL through the two-level
// media lookup, or "" when either level misses.
func (g *entityGraph) imageURL(key string) string {
	mediaID, ok := g.mediaRefs[key]
	if !ok {
		return ""
	}
	return g.mediaURLs[mediaID]
}

// callTweetAPI fetches and decodes one tweet from the API. Used for the
// primary lookup and for quoted-tweet sub-fetches.
func callTweetAPI(apiURL string, timeout time.Duration) (*apiTweet, error) {
	body, err := fetchJSON(apiURL, timeout)
	if err != nil {
		return nil, err
	}

	var resp tweetAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tweet API returned invalid JSON: %w", err)
	}
	if resp.Code != 200 || resp.Tweet == nil {
		msg := resp.Message
		if msg == "" {
			msg = "tweet not found"
		}
		return nil, fmt.Errorf("tweet API: %s", msg)
	}
	return resp.Tweet, nil
}

// extractTweet fetches a tweet permalink and renders it as a normalized
// document, branching on whether the tweet carries a long-form article.
func extractTweet(rawURL string, timeout time.Duration) (*document, error) {
	handle, id, err := parseTweetURL(rawURL)
	if err != nil {
		return nil, err
	}

	tweet, err := callTweetAPI(fmt.Sprintf("%s/%s/status/%s", tweetAPIBase, handle, id), timeout)
	if err != nil {
		return nil, err
	}

	if tweet.Author != nil && tweet.Author.ScreenName != "" {
		handle = tweet.Author.ScreenName
	}
	byline := handle
	if tweet.Author != nil {
		if tweet.Author.Name != "" {
			byline = tweet.Author.Name
		} else if tweet.Author.ScreenName != "" {
			byline = tweet.Author.ScreenName
		}
	}

	if tweet.Article != nil && tweet.Article.Content != nil && len(tweet.Article.Content.Blocks) > 0 {
		doc := renderArticleTweet(tweet.Article, handle, timeout)
		doc.Byline = byline
		return doc, nil
	}

	doc, err := renderShortTweet(tweet, handle)
	if err != nil {
		return nil, err
	}
	doc.Byline = byline
	return doc, nil
}

// buildEntityGraph derives the lookup tables from an article payload and
// concurrently resolves every referenced tweet. Individual sub-fetch
// failures are absorbed: the reference is simply left unresolved.
func buildEntityGraph(article *apiArticle, timeout time.Duration) *entityGraph {
	g := &entityGraph{
		mediaRefs: map[string]string{},
		dividers:  map[string]bool{},
		mediaURLs: map[string]string{},
		quotes:    map[string]*quoteRef{},
	}

	for _, me := range article.MediaEntities {
		if me.MediaID != "" && me.MediaInfo.OriginalImgURL != "" {
			g.mediaURLs[me.MediaID] = me.MediaInfo.OriginalImgURL
		}
	}

	type tweetRef struct {
		key string
		id  string
	}
	var refs []tweetRef

	for key, ent := range article.Content.EntityMap {
		switch ent.Type {
		case "MEDIA":
			if len(ent.Data.MediaItems) > 0 && ent.Data.MediaItems[0].MediaID != "" {
				g.mediaRefs[key] = ent.Data.MediaItems[0].MediaID
			}
		case "DIVIDER":
			g.dividers[key] = true
		case "TWEET":
			if ent.Data.TweetID != "" {
				refs = append(refs, tweetRef{key: key, id: ent.Data.TweetID})
			}
		}
	}

	if len(refs) == 0 {
		return g
	}

	// Resolve all referenced tweets concurrently, joining on all-settled:
	// a failed sub-fetch must not fail its siblings or the extraction.
	resolved := make([]*quoteRef, len(refs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, 4)

	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref tweetRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			t, err := callTweetAPI(fmt.Sprintf("%s/i/status/%s", tweetAPIBase, ref.id), timeout)
			if err != nil {
				fmt.Fprintf(logOut, "Warning: could not resolve referenced tweet %s: %v\n", ref.id, err)
				return
			}
			resolved[i] = quoteFromTweet(t)
		}(i, ref)
	}
	wg.Wait()

	for i, ref := range refs {
		if resolved[i] != nil {
			g.quotes[ref.key] = resolved[i]
		}
	}
	return g
}

// quoteFromTweet reduces a fetched tweet to the summary shown in a quote
// block.
func quoteFromTweet(t *apiTweet) *quoteRef {
	q := &quoteRef{Text: t.Text, URL: t.URL}
	if t.Author != nil {
		q.Author = t.Author.Name
		q.Handle = t.Author.ScreenName
	}
	if t.Article != nil {
		q.Title = t.Article.Title
	}
	return q
}

// renderArticleTweet renders a long-form article's blocks in document
// order, prepending the cover image when one is declared.
func renderArticleTweet(article *apiArticle, handle string, timeout time.Duration) *document {
	graph := buildEntityGraph(article, timeout)

	var parts []string
	if article.CoverMedia != nil && article.CoverMedia.MediaInfo.OriginalImgURL != "" {
		parts = append(parts, fmt.Sprintf(`<img src="%s" alt="Cover image"/>`,
			html.EscapeString(article.CoverMedia.MediaInfo.OriginalImgURL)))
	}

	var textParts []string
	for _, block := range article.Content.Blocks {
		if rendered := renderRichTextBlock(block, graph); rendered != "" {
			parts = append(parts, rendered)
		}
		if t := strings.TrimSpace(block.Text); t != "" {
			textParts = append(textParts, t)
		}
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Article by @" + handle
	}

	return &document{
		Title:       title,
		ContentHTML: strings.Join(parts, "\n"),
		PlainText:   strings.Join(textParts, "\n\n"),
		SiteName:    tweetSiteName,
	}
}

// renderRichTextBlock renders one block by its declared type. Block text is
// emitted as-is; the API guarantees it is HTML-safe. List items are kept as
// bare <li> elements for output compatibility with the upstream format.
func renderRichTextBlock(block apiBlock, graph *entityGraph) string {
	switch block.Type {
	case "header-one":
		return "<h1>" + block.Text + "</h1>"
	case "header-two":
		return "<h2>" + block.Text + "</h2>"
	case "header-three":
		return "<h3>" + block.Text + "</h3>"
	case "blockquote":
		return "<blockquote>" + block.Text + "</blockquote>"
	case "code-block":
		return "<pre><code>" + block.Text + "</code></pre>"
	case "ordered-list-item", "unordered-list-item":
		return "<li>" + block.Text + "</li>"
	case "atomic":
		return renderAtomicBlock(block, graph)
	default:
		if strings.TrimSpace(block.Text) == "" {
			return "<br/>"
		}
		return "<p>" + block.Text + "</p>"
	}
}

// renderAtomicBlock resolves an atomic block through the entity graph via
// its first entity-range key. Resolution order: inline image, quoted tweet,
// divider. An unresolvable block renders nothing.
func renderAtomicBlock(block apiBlock, graph *entityGraph) string {
	if len(block.EntityRanges) == 0 {
		return ""
	}
	key := strconv.Itoa(block.EntityRanges[0].Key)

	if imgURL := graph.imageURL(key); imgURL != "" {
		return fmt.Sprintf(`<img src="%s" alt=""/>`, html.EscapeString(imgURL))
	}
	if q, ok := graph.quotes[key]; ok {
		return renderQuoteBlock(q)
	}
	if graph.dividers[key] {
		return "<hr/>"
	}
	return ""
}

// renderQuoteBlock renders a resolved tweet reference as a styled
// blockquote with author, handle, optional article title, text, and link.
func renderQuoteBlock(q *quoteRef) string {
	var b strings.Builder
	b.WriteString(`<blockquote class="quoted-tweet">`)

	var attribution []string
	if q.Author != "" {
		attribution = append(attribution, "<strong>"+html.EscapeString(q.Author)+"</strong>")
	}
	if q.Handle != "" {
		attribution = append(attribution, "@"+html.EscapeString(q.Handle))
	}
	if len(attribution) > 0 {
		b.WriteString("<p>" + strings.Join(attribution, " ") + "</p>")
	}
	if q.Title != "" {
		b.WriteString("<p><em>" + html.EscapeString(q.Title) + "</em></p>")
	}
	if q.Text != "" {
		b.WriteString("<p>" + html.EscapeString(q.Text) + "</p>")
	}
	if q.URL != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s">%s</a></p>`,
			html.EscapeString(q.URL), html.EscapeString(q.URL)))
	}
	b.WriteString("</blockquote>")
	return b.String()
}

// renderShortTweet renders a plain tweet: one paragraph per text line,
// then photos, then the quoted tweet if present.
func renderShortTweet(tweet *apiTweet, handle string) (*document, error) {
	if strings.TrimSpace(tweet.Text) == "" {
		return nil, fmt.Errorf("tweet @%s has no text content", handle)
	}

	var b strings.Builder
	for _, line := range strings.Split(tweet.Text, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("<p>&#160;</p>\n")
			continue
		}
		b.WriteString("<p>" + html.EscapeString(line) + "</p>\n")
	}

	if tweet.Media != nil && len(tweet.Media.Photos) > 0 {
		b.WriteString(`<div class="tweet-photos">`)
		for _, p := range tweet.Media.Photos {
			if p.URL == "" {
				continue
			}
			fmt.Fprintf(&b, `<img src="%s" alt=""/>`, html.EscapeString(p.URL))
		}
		b.WriteString("</div>\n")
	}

	if tweet.Quote != nil {
		b.WriteString(renderQuoteBlock(quoteFromTweet(tweet.Quote)))
		b.WriteString("\n")
	}

	return &document{
		Title:       "Tweet by @" + handle,
		ContentHTML: strings.TrimSuffix(b.String(), "\n"),
		PlainText:   tweet.Text,
		SiteName:    tweetSiteName,
	}, nil
}
