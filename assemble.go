// Document assembly: wraps normalized content in a metadata-carrying HTML
// shell, joins chapters into a single body for book packaging, and prepares
// the metadata record and output filename for the packaging stage.
//
// Chapter boundaries are signaled by top-level <h1> headings; the packaging
// stage splits on them, so every pre-existing heading inside a chapter is
// shifted down one level first.
package main

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var headingRe = regexp.MustCompile(`(?i)<(/?)h([1-6])([^>]*)>`)

// repairMarkup runs both markup repair passes over an HTML fragment.
func repairMarkup(htmlStr string) string {
	htmlStr = rewriteVideoEmbeds(htmlStr)
	return repairPictureSources(htmlStr)
}

// shiftHeadings shifts all headings down one level (h1->h2, ..., clamped at h6).
func shiftHeadings(text string) string {
	return headingRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := headingRe.FindStringSubmatch(match)
		if parts == nil {
			return match
		}
		isClose := parts[1] == "/"
		level, _ := strconv.Atoi(parts[2])
		newLevel := level + 1
		if newLevel > 6 {
			newLevel = 6
		}
		if isClose {
			return fmt.Sprintf("</h%d>", newLevel)
		}
		return fmt.Sprintf("<h%d%s>", newLevel, parts[3])
	})
}

// bookMeta is the metadata record handed to the packaging stage.
type bookMeta struct {
	Title    string
	Author   string // optional
	Language string
}

// render produces the textual metadata record. Every value is escaped and
// quoted, even plain text, so the record stays parseable regardless of
// title content.
func (m bookMeta) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %s\n", quoteMetaValue(m.Title))
	if m.Author != "" {
		fmt.Fprintf(&b, "author: %s\n", quoteMetaValue(m.Author))
	}
	fmt.Fprintf(&b, "language: %s\n", quoteMetaValue(m.Language))
	return b.String()
}

// quoteMetaValue neutralizes backslashes, quotes, newlines, and tabs, and
// always wraps the result in double quotes.
func quoteMetaValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return `"` + s + `"`
}

// safeFilename reduces a title to a filesystem-safe token: illegal and
// control characters stripped, whitespace runs collapsed to underscores,
// length capped.
func safeFilename(title string) string {
	const maxLen = 64

	var b strings.Builder
	for _, r := range title {
		switch {
		case r < 0x20 || r == 0x7F:
			// control chars dropped
		case strings.ContainsRune(`/\:*?"<>|`, r):
			// illegal in filenames
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Join(strings.FieldsFunc(b.String(), unicode.IsSpace), "_")
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	name = strings.Trim(name, "._")
	if name == "" {
		return "book"
	}
	return name
}

// assembleSingle wraps one normalized document in a full HTML shell after
// markup repair, and returns the shell plus its metadata record.
func assembleSingle(doc *document) (string, bookMeta) {
	body := repairMarkup(doc.ContentHTML)

	header := fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(doc.Title))
	if byline := formatByline(doc); byline != "" {
		header += byline + "\n"
	}

	meta := bookMeta{Title: doc.Title, Author: doc.Byline, Language: "en"}
	return renderHTMLShell(header+body, doc.Title, doc.Byline), meta
}

// assembleChapter prepares one chapter body: markup repair, headings
// shifted down a level, and the chapter title injected as the <h1>
// boundary heading the packaging stage splits on.
func assembleChapter(ch chapter) string {
	body := repairMarkup(ch.HTMLContent)
	body = shiftHeadings(body)
	return fmt.Sprintf("<h1>%s</h1>\n%s", html.EscapeString(ch.Title), body)
}

// assembleBook joins chapters, in input order, into one document body with
// an <h1> boundary heading per chapter. When author is empty the first
// chapter's byline is used.
func assembleBook(chapters []chapter, bookTitle, author string) (string, bookMeta) {
	if author == "" && len(chapters) > 0 {
		author = chapters[0].Byline
	}

	var b strings.Builder
	for _, ch := range chapters {
		b.WriteString(assembleChapter(ch))
		b.WriteByte('\n')
	}

	meta := bookMeta{Title: bookTitle, Author: author, Language: "en"}
	return renderHTMLShell(b.String(), bookTitle, author), meta
}

// formatByline builds the attribution paragraph shown under the title.
func formatByline(doc *document) string {
	var parts []string
	if doc.Byline != "" {
		parts = append(parts, html.EscapeString(doc.Byline))
	}
	if doc.SiteName != "" {
		parts = append(parts, html.EscapeString(doc.SiteName))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf(`<p class="byline">%s</p>`, strings.Join(parts, " · "))
}

// renderHTMLShell wraps a body fragment in a complete HTML document with
// title and author metadata. Fragments that already look like full
// documents are returned as-is.
func renderHTMLShell(fragment, title, author string) string {
	lower := strings.ToLower(fragment)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype") {
		return fragment
	}

	var headExtra strings.Builder
	if author != "" {
		fmt.Fprintf(&headExtra, "\t<meta name=\"author\" content=\"%s\">\n", html.EscapeString(author))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>%s</title>
%s	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
			line-height: 1.6;
			color: #333;
			max-width: 800px;
			margin: 0 auto;
			padding: 2rem 1rem;
		}
		img { max-width: 100%%; height: auto; }
		pre { white-space: pre-wrap; word-wrap: break-word; }
		.byline { color: #666; font-style: italic; margin-bottom: 2rem; }
		blockquote { border-left: 4px solid #eee; padding-left: 1rem; margin-left: 0; color: #666; }
		.quoted-tweet { background: #f8f8f8; padding: 0.5rem 1rem; }
	</style>
</head>
<body>
%s
</body>
</html>
`, html.EscapeString(title), headExtra.String(), fragment)
}
