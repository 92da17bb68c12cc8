// Minimal markdown renderer for the restricted dialect used by the
// structured-data island's post bodies. This is deliberately not a full
// markdown engine: block types and the inline substitution order are fixed,
// and known dialect quirks (bold-before-italic marker ambiguity) are kept
// for output compatibility.
package main

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	mdBlockSplitRe = regexp.MustCompile(`\n[ \t]*\n`)
	mdHeadingRe    = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	mdImageOnlyRe  = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)\)$`)

	mdInlineImgRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	mdBoldRe      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalicRe    = regexp.MustCompile(`\*([^*]+)\*`)
	mdCodeRe      = regexp.MustCompile("`([^`]+)`")
)

// mdInline applies inline substitutions in fixed order: images, links,
// bold, italic, code. The order matters; bold/italic markers must not be
// mistaken for link or image brackets.
func mdInline(s string) string {
	s = mdInlineImgRe.ReplaceAllString(s, `<img src="$2" alt="$1"/>`)
	s = mdLinkRe.ReplaceAllString(s, `<a href="$2">$1</a>`)
	s = mdBoldRe.ReplaceAllString(s, `<strong>$1</strong>`)
	s = mdItalicRe.ReplaceAllString(s, `<em>$1</em>`)
	s = mdCodeRe.ReplaceAllString(s, `<code>$1</code>`)
	return s
}

// renderMiniMarkdown converts the restricted markdown dialect to HTML.
// Blocks are blank-line separated; whitespace-only blocks are dropped;
// empty input yields empty output.
func renderMiniMarkdown(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")

	var out []string
	for _, block := range mdBlockSplitRe.Split(src, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, renderBlock(block))
	}
	return strings.Join(out, "\n")
}

// renderBlock classifies one block in priority order: heading, image-only,
// blockquote, paragraph.
func renderBlock(block string) string {
	if m := mdHeadingRe.FindStringSubmatch(block); m != nil {
		level := len(m[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, mdInline(m[2]), level)
	}

	if m := mdImageOnlyRe.FindStringSubmatch(block); m != nil {
		return fmt.Sprintf(`<img src="%s" alt="%s"/>`, m[2], m[1])
	}

	if strings.HasPrefix(block, "> ") || strings.HasPrefix(block, ">") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimPrefix(line, "> ")
			line = strings.TrimPrefix(line, ">")
			lines = append(lines, line)
		}
		text := strings.TrimSpace(strings.Join(lines, " "))
		return "<blockquote><p>" + mdInline(text) + "</p></blockquote>"
	}

	return "<p>" + mdInline(block) + "</p>"
}
