package main

import (
	"strings"
	"testing"
)

func TestRewriteVideoEmbeds_NoEmbeds(t *testing.T) {
	input := `<p>Hello</p><iframe src="https://example.com/widget"></iframe>`
	if got := rewriteVideoEmbeds(input); got != input {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func TestRewriteVideoEmbeds_Empty(t *testing.T) {
	if got := rewriteVideoEmbeds(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestRewriteVideoEmbeds_WithTitle(t *testing.T) {
	input := `<p>before</p><iframe src="https://www.youtube.com/embed/dQw4w9WgXcQ?rel=0" title="Great Video"></iframe><p>after</p>`
	got := rewriteVideoEmbeds(input)

	if strings.Contains(got, "<iframe") {
		t.Error("expected iframe removed")
	}
	if !strings.Contains(got, `<a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ">Great Video</a>`) {
		t.Errorf("expected watch link with title, got %q", got)
	}
	if !strings.Contains(got, "(YouTube)") {
		t.Error("expected platform marker")
	}
	if !strings.Contains(got, "<p>before</p>") || !strings.Contains(got, "<p>after</p>") {
		t.Error("surrounding markup was corrupted")
	}
}

func TestRewriteVideoEmbeds_NoTitle(t *testing.T) {
	input := `<iframe src="https://www.youtube.com/embed/abc123"></iframe>`
	got := rewriteVideoEmbeds(input)
	if !strings.Contains(got, ">Video link</a>") {
		t.Errorf("expected fallback label, got %q", got)
	}
}

func TestRewriteVideoEmbeds_Multiple(t *testing.T) {
	input := `<iframe src="https://www.youtube.com/embed/one"></iframe>` +
		`<iframe src="https://example.com/other"></iframe>` +
		`<iframe src="https://www.youtube.com/embed/two"></iframe>`
	got := rewriteVideoEmbeds(input)

	if !strings.Contains(got, "watch?v=one") || !strings.Contains(got, "watch?v=two") {
		t.Errorf("expected both embeds rewritten, got %q", got)
	}
	if !strings.Contains(got, `src="https://example.com/other"`) {
		t.Error("non-matching iframe should be untouched")
	}
}

func TestRepairPictureSources_ImgHasSrc(t *testing.T) {
	input := `<picture><source srcset="https://example.com/a.webp"/><img src="https://example.com/a.jpg"/></picture>`
	if got := repairPictureSources(input); got != input {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func TestRepairPictureSources_NoSources(t *testing.T) {
	input := `<picture><img alt="x"/></picture>`
	if got := repairPictureSources(input); got != input {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func TestRepairPictureSources_PrefersNonWebP(t *testing.T) {
	input := `<picture>` +
		`<source type="image/webp" srcset="https://example.com/a.webp 640w"/>` +
		`<source type="image/jpeg" srcset="https://example.com/a.jpg 640w"/>` +
		`<img alt="x"/></picture>`
	got := repairPictureSources(input)
	if !strings.Contains(got, `src="https://example.com/a.jpg"`) {
		t.Errorf("expected non-WebP source selected, got %q", got)
	}
}

func TestRepairPictureSources_OnlyWebP(t *testing.T) {
	input := `<picture><source srcset="https://example.com/only.webp"/><img alt="x"/></picture>`
	got := repairPictureSources(input)
	if !strings.Contains(got, `src="https://example.com/only.webp"`) {
		t.Errorf("expected WebP fallback selected, got %q", got)
	}
}

func TestRepairPictureSources_FirstSrcsetCandidate(t *testing.T) {
	input := `<picture><source srcset="https://example.com/small.jpg 640w, https://example.com/big.jpg 1280w"/><img/></picture>`
	got := repairPictureSources(input)
	if !strings.Contains(got, `src="https://example.com/small.jpg"`) {
		t.Errorf("expected first srcset candidate, got %q", got)
	}
}

func TestFirstSrcsetURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a/x.jpg 640w, https://a/y.jpg 1280w", "https://a/x.jpg"},
		{"https://a/x.jpg", "https://a/x.jpg"},
		{"  https://a/x.jpg 2x ", "https://a/x.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstSrcsetURL(tt.in); got != tt.want {
			t.Errorf("firstSrcsetURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
