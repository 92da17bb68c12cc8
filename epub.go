// EPUB packaging from assembled chapters using go-epub.
// Chapters arrive from the assembler with <h1> boundary headings; each one
// becomes its own XHTML section, which is what splitting on top-level
// headings means for this packager.
package main

import (
	"encoding/base64"
	"fmt"
	gohtml "html"
	"regexp"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

var (
	// Matches <img src="data:MIME;base64,DATA"> for extracting embedded images
	imgDataURIRe = regexp.MustCompile(`(<img\b[^>]*?\bsrc\s*=\s*")data:([^;]+);base64,([^"]*)(")`)
	// Strips HTML tags for plain text extraction
	stripTagsRe = regexp.MustCompile(`<[^>]*>`)
)

// extractBodyContent extracts the content between <body> and </body> tags.
// If no body tags are found, returns the full HTML.
func extractBodyContent(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<body")
	if start < 0 {
		return html
	}
	end := strings.Index(html[start:], ">")
	if end < 0 {
		return html
	}
	start = start + end + 1

	bodyEnd := strings.Index(lower[start:], "</body>")
	if bodyEnd < 0 {
		return html[start:]
	}
	return html[start : start+bodyEnd]
}

// embedChapterImages finds all base64 data URI images in a chapter body,
// registers them with the epub, and rewrites src attributes to internal
// paths.
func embedChapterImages(e *epub.Epub, body string, chapterIdx int) string {
	imgIdx := 0

	return imgDataURIRe.ReplaceAllStringFunc(body, func(match string) string {
		parts := imgDataURIRe.FindStringSubmatch(match)
		if parts == nil {
			return match
		}
		prefix := parts[1]
		mime := parts[2]
		b64data := parts[3]
		suffix := parts[4]

		ext := ".jpg"
		switch {
		case strings.Contains(mime, "png"):
			ext = ".png"
		case strings.Contains(mime, "gif"):
			ext = ".gif"
		case strings.Contains(mime, "svg"):
			ext = ".svg"
		case strings.Contains(mime, "webp"):
			ext = ".webp"
		}

		filename := fmt.Sprintf("ch%03d_img%03d%s", chapterIdx, imgIdx, ext)
		imgIdx++

		if _, err := decodeBase64(b64data); err != nil {
			fmt.Fprintf(logOut, "Warning: invalid base64 for %s: %v\n", filename, err)
			return match
		}

		dataURI := "data:" + mime + ";base64," + b64data
		internalPath, err := e.AddImage(dataURI, filename)
		if err != nil {
			fmt.Fprintf(logOut, "Warning: failed to add image %s: %v\n", filename, err)
			return match
		}

		return prefix + internalPath + suffix
	})
}

// buildTOCBody generates the HTML body for the front matter table of
// contents: a linked list of chapters with their bylines.
func buildTOCBody(chapters []chapter) string {
	var b strings.Builder
	b.WriteString("<h1>Contents</h1>\n<ol class=\"toc\">\n")
	for i, ch := range chapters {
		filename := fmt.Sprintf("chapter%03d.xhtml", i+1)
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		b.WriteString("<li>\n")
		b.WriteString(fmt.Sprintf(`<a href="%s">%s</a>`, filename, gohtml.EscapeString(title)))
		b.WriteByte('\n')
		if ch.Byline != "" {
			b.WriteString(fmt.Sprintf(`<p class="toc-meta">%s</p>`, gohtml.EscapeString(ch.Byline)))
			b.WriteByte('\n')
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ol>\n")
	return b.String()
}

// buildEpub creates an epub3 file from assembled chapters. Chapter order is
// preserved exactly as given.
func buildEpub(chapters []chapter, meta bookMeta, outputPath string) error {
	e, err := epub.NewEpub(meta.Title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetLang(meta.Language)
	if meta.Author != "" {
		e.SetAuthor(meta.Author)
	} else {
		e.SetAuthor("bindery")
	}

	// Generated cover, seeded from the title.
	if coverPNG, err := generateCover(meta.Title, len(chapters)); err == nil {
		coverURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(coverPNG)
		if coverPath, err := e.AddImage(coverURI, "cover.png"); err == nil {
			e.SetCover(coverPath, "")
		} else {
			fmt.Fprintf(logOut, "Warning: could not add cover: %v\n", err)
		}
	} else {
		fmt.Fprintf(logOut, "Warning: could not generate cover: %v\n", err)
	}

	// Minimal CSS for e-readers.
	css := `body { margin: 1em; line-height: 1.5; }
img { max-width: 100%; height: auto; }
pre, code { font-size: 0.85em; }
blockquote { margin-left: 1em; padding-left: 0.5em; border-left: 2px solid #999; }
.quoted-tweet { background: #f4f4f4; }
.byline { font-size: 0.85em; color: #666; margin-top: -0.5em; margin-bottom: 1.5em; }
.toc { list-style-type: none; padding-left: 0; }
.toc li { margin-bottom: 1.2em; }
.toc a { text-decoration: none; }
.toc-meta { font-size: 0.85em; color: #666; margin-top: 0.1em; }`
	cssDataURI := "data:text/css;base64," + base64.StdEncoding.EncodeToString([]byte(css))
	cssPath, err := e.AddCSS(cssDataURI, "styles.css")
	if err != nil {
		fmt.Fprintf(logOut, "Warning: could not add CSS: %v\n", err)
		cssPath = ""
	}

	if len(chapters) > 1 {
		if _, err := e.AddSection(buildTOCBody(chapters), "Contents", "contents.xhtml", cssPath); err != nil {
			fmt.Fprintf(logOut, "Warning: could not add table of contents: %v\n", err)
		}
	}

	for i, ch := range chapters {
		body := extractBodyContent(ch.HTMLContent)
		body = sanitizeForXHTML(body)
		body = embedChapterImages(e, body, i+1)

		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		filename := fmt.Sprintf("chapter%03d.xhtml", i+1)
		if _, err := e.AddSection(body, title, filename, cssPath); err != nil {
			fmt.Fprintf(logOut, "Warning: could not add section %q: %v\n", title, err)
			continue
		}
	}

	if err := e.Write(outputPath); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}

	return nil
}
