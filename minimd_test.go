package main

import (
	"strings"
	"testing"
)

func TestRenderMiniMarkdown_Heading(t *testing.T) {
	if got := renderMiniMarkdown("# Heading"); got != "<h1>Heading</h1>" {
		t.Errorf("got %q, want %q", got, "<h1>Heading</h1>")
	}
	if got := renderMiniMarkdown("### Sub"); got != "<h3>Sub</h3>" {
		t.Errorf("got %q, want %q", got, "<h3>Sub</h3>")
	}
	if got := renderMiniMarkdown("###### Deep"); got != "<h6>Deep</h6>" {
		t.Errorf("got %q, want %q", got, "<h6>Deep</h6>")
	}
}

func TestRenderMiniMarkdown_Empty(t *testing.T) {
	if got := renderMiniMarkdown(""); got != "" {
		t.Errorf("empty input should yield empty output, got %q", got)
	}
	if got := renderMiniMarkdown("  \n\n \t\n"); got != "" {
		t.Errorf("whitespace-only input should yield empty output, got %q", got)
	}
}

func TestRenderMiniMarkdown_Paragraphs(t *testing.T) {
	got := renderMiniMarkdown("first paragraph\n\nsecond paragraph")
	want := "<p>first paragraph</p>\n<p>second paragraph</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMiniMarkdown_Bold(t *testing.T) {
	got := renderMiniMarkdown("some **bold** text")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("expected strong element, got %q", got)
	}
}

func TestRenderMiniMarkdown_Italic(t *testing.T) {
	got := renderMiniMarkdown("some *slanted* text")
	if !strings.Contains(got, "<em>slanted</em>") {
		t.Errorf("expected em element, got %q", got)
	}
}

func TestRenderMiniMarkdown_InlineCode(t *testing.T) {
	got := renderMiniMarkdown("run `go vet` now")
	if !strings.Contains(got, "<code>go vet</code>") {
		t.Errorf("expected code element, got %q", got)
	}
}

func TestRenderMiniMarkdown_Link(t *testing.T) {
	got := renderMiniMarkdown("see [docs](https://example.com/docs)")
	if !strings.Contains(got, `<a href="https://example.com/docs">docs</a>`) {
		t.Errorf("expected link, got %q", got)
	}
}

func TestRenderMiniMarkdown_ImageOnlyBlock(t *testing.T) {
	got := renderMiniMarkdown("![a cat](https://example.com/cat.jpg)")
	want := `<img src="https://example.com/cat.jpg" alt="a cat"/>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMiniMarkdown_InlineImage(t *testing.T) {
	got := renderMiniMarkdown("text with ![pic](https://example.com/p.png) inline")
	if !strings.HasPrefix(got, "<p>") {
		t.Errorf("expected paragraph wrapper, got %q", got)
	}
	if !strings.Contains(got, `<img src="https://example.com/p.png" alt="pic"/>`) {
		t.Errorf("expected inline image, got %q", got)
	}
}

func TestRenderMiniMarkdown_Blockquote(t *testing.T) {
	got := renderMiniMarkdown("> quoted line one\n> quoted line two")
	want := "<blockquote><p>quoted line one quoted line two</p></blockquote>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMiniMarkdown_BoldBeforeItalic(t *testing.T) {
	// Substitution order is fixed: ** must be consumed before *.
	got := renderMiniMarkdown("**a** and *b*")
	if !strings.Contains(got, "<strong>a</strong>") || !strings.Contains(got, "<em>b</em>") {
		t.Errorf("got %q", got)
	}
}

func TestRenderMiniMarkdown_HeadingWithInline(t *testing.T) {
	got := renderMiniMarkdown("## A **big** deal")
	want := "<h2>A <strong>big</strong> deal</h2>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMiniMarkdown_CRLF(t *testing.T) {
	got := renderMiniMarkdown("one\r\n\r\ntwo")
	want := "<p>one</p>\n<p>two</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
