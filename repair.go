// Markup repair for constructs the e-book renderer cannot handle natively:
// video embeds become watch-page links, and responsive <picture> groupings
// get a direct img src selected from their source list.
package main

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var youtubeEmbedRe = regexp.MustCompile(`(?:youtube\.com|youtube-nocookie\.com)/embed/([A-Za-z0-9_-]+)`)

// rewriteVideoEmbeds replaces YouTube embed iframes with a paragraph
// linking to the canonical watch URL. Non-matching markup is returned
// unchanged, byte for byte.
func rewriteVideoEmbeds(htmlStr string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	changed := false
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		m := youtubeEmbedRe.FindStringSubmatch(src)
		if m == nil {
			return
		}

		label := strings.TrimSpace(s.AttrOr("title", ""))
		if label == "" {
			label = "Video link"
		}
		watchURL := "https://www.youtube.com/watch?v=" + m[1]
		s.ReplaceWithHtml(fmt.Sprintf(`<p><a href="%s">%s</a> (YouTube)</p>`,
			watchURL, html.EscapeString(label)))
		changed = true
	})

	if !changed {
		return htmlStr
	}
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// repairPictureSources injects a direct src into <picture> images that only
// declare alternative sources. A non-WebP candidate is preferred for broad
// renderer compatibility; only the first URL of a comma-separated srcset is
// used. Pictures whose img already has a src are left alone.
func repairPictureSources(htmlStr string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	changed := false
	doc.Find("picture").Each(func(_ int, pic *goquery.Selection) {
		img := pic.Find("img").First()
		if img.Length() == 0 {
			return
		}
		if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
			return
		}

		var first, nonWebP string
		pic.Find("source").Each(func(_ int, source *goquery.Selection) {
			u := firstSrcsetURL(source.AttrOr("srcset", ""))
			if u == "" {
				return
			}
			if first == "" {
				first = u
			}
			if nonWebP == "" && !isWebPSource(source, u) {
				nonWebP = u
			}
		})

		chosen := nonWebP
		if chosen == "" {
			chosen = first
		}
		if chosen == "" {
			return
		}
		img.SetAttr("src", chosen)
		changed = true
	})

	if !changed {
		return htmlStr
	}
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// firstSrcsetURL returns the URL of the first candidate in a srcset list,
// with any width/density descriptor stripped.
func firstSrcsetURL(srcset string) string {
	candidate := srcset
	if idx := strings.Index(candidate, ","); idx >= 0 {
		candidate = candidate[:idx]
	}
	fields := strings.Fields(strings.TrimSpace(candidate))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isWebPSource(source *goquery.Selection, u string) bool {
	if strings.Contains(strings.ToLower(source.AttrOr("type", "")), "webp") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(u), ".webp")
}
