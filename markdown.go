// Markdown export: converts assembled chapters to CommonMark Markdown.
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once
)

// getMarkdownConverter returns a shared converter that replaces base64 data
// URI images with alt-text placeholders instead of embedding the raw URI.
func getMarkdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
		// PriorityEarly (100) runs before the commonmark plugin (500).
		mdConverter.Register.RendererFor("img", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				src := dom.GetAttributeOr(n, "src", "")
				if !strings.HasPrefix(src, "data:") {
					return converter.RenderTryNext
				}
				alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", ""))
				if alt != "" {
					w.WriteString("[Image: " + alt + "]")
				}
				return converter.RenderSuccess
			},
			converter.PriorityEarly,
		)
	})
	return mdConverter
}

// chapterToMarkdown converts one chapter's HTML to CommonMark Markdown.
func chapterToMarkdown(htmlStr string) (string, error) {
	body := extractBodyContent(htmlStr)
	md, err := getMarkdownConverter().ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// chaptersToMarkdown converts assembled chapters to a single Markdown
// document, separated by horizontal rules. Chapters that fail to convert
// are skipped with a warning.
func chaptersToMarkdown(chapters []chapter) (string, error) {
	var parts []string
	for _, ch := range chapters {
		md, err := chapterToMarkdown(ch.HTMLContent)
		if err != nil {
			fmt.Fprintf(logOut, "Warning: markdown conversion failed for %q: %v\n", ch.Title, err)
			continue
		}
		parts = append(parts, md)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no chapters converted to markdown")
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}
