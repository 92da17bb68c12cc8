package main

import (
	"archive/zip"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	epub "github.com/go-shiori/go-epub"
)

func TestExtractBodyContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"with body tags", `<html><body><p>hello</p></body></html>`, `<p>hello</p>`},
		{"no body tags", `<p>hello</p>`, `<p>hello</p>`},
		{"body with attrs", `<html><body class="x"><p>hi</p></body></html>`, `<p>hi</p>`},
		{"no end body", `<html><body><p>hello</p>`, `<p>hello</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBodyContent(tt.input)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTOCBody(t *testing.T) {
	chapters := []chapter{
		{Title: "First Chapter", Byline: "Jane Doe"},
		{Title: ""},
	}
	result := buildTOCBody(chapters)

	if !strings.Contains(result, "First Chapter") {
		t.Error("expected chapter title in TOC")
	}
	if !strings.Contains(result, "Jane Doe") {
		t.Error("expected byline in TOC")
	}
	if !strings.Contains(result, `href="chapter001.xhtml"`) {
		t.Error("expected link to chapter001.xhtml")
	}
	if !strings.Contains(result, "Chapter 2") {
		t.Error("empty title should fall back to 'Chapter N'")
	}
}

func TestEmbedChapterImages(t *testing.T) {
	imgData := makePNG(10, 10, color.NRGBA{255, 0, 0, 255})
	body := `<p>Text</p><img src="` + dataURI("image/png", imgData) + `" alt="png">`

	e, _ := epub.NewEpub("test")
	result := embedChapterImages(e, body, 1)

	if strings.Contains(result, "data:image/png;base64,") {
		t.Error("PNG data URI should be replaced with internal path")
	}
	if !strings.Contains(result, "ch001_img000") {
		t.Errorf("expected internal image path in output, got %q", result)
	}
}

func TestEmbedChapterImages_InvalidBase64(t *testing.T) {
	body := `<img src="data:image/jpeg;base64,!!!invalid!!!" alt="broken">`

	e, _ := epub.NewEpub("test")
	result := embedChapterImages(e, body, 1)
	if !strings.Contains(result, "!!!invalid!!!") {
		t.Error("invalid base64 image should be kept as-is")
	}
}

func TestBuildEpub_Basic(t *testing.T) {
	imgData := makePNG(100, 100, color.NRGBA{255, 0, 0, 255})
	imgURI := dataURI("image/png", imgData)

	chapters := []chapter{
		{
			Title:       "First Chapter",
			HTMLContent: `<html><body><h1>First Chapter</h1><p>Some content here.</p></body></html>`,
		},
		{
			Title:       "Second Chapter",
			HTMLContent: `<html><body><h1>Second Chapter</h1><p>More content.</p><img src="` + imgURI + `" alt="test"></body></html>`,
			Byline:      "Jane Doe",
		},
	}

	outPath := filepath.Join(t.TempDir(), "test.epub")
	meta := bookMeta{Title: "Test Book", Author: "An Author", Language: "en"}
	if err := buildEpub(chapters, meta, outPath); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() < 100 {
		t.Errorf("epub too small: %d bytes", info.Size())
	}

	// An epub is a zip file.
	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("not a valid zip: %v", err)
	}
	defer zr.Close()

	fileNames := map[string]bool{}
	for _, f := range zr.File {
		fileNames[f.Name] = true
	}

	if !fileNames["EPUB/xhtml/contents.xhtml"] {
		t.Error("missing contents.xhtml (front matter TOC)")
	}
	if !fileNames["EPUB/xhtml/chapter001.xhtml"] {
		t.Error("missing chapter001.xhtml")
	}
	if !fileNames["EPUB/xhtml/chapter002.xhtml"] {
		t.Error("missing chapter002.xhtml")
	}

	hasImage := false
	hasNav := false
	for name := range fileNames {
		if strings.Contains(name, "ch002_img000") {
			hasImage = true
		}
		if strings.Contains(name, "nav") {
			hasNav = true
		}
	}
	if !hasImage {
		t.Error("missing embedded image file")
	}
	if !hasNav {
		t.Error("missing nav file")
	}

	toc := readZipFile(zr, "EPUB/xhtml/contents.xhtml")
	if !strings.Contains(toc, "First Chapter") || !strings.Contains(toc, "Second Chapter") {
		t.Error("TOC should list both chapters")
	}
	if !strings.Contains(toc, "Jane Doe") {
		t.Error("TOC should contain chapter byline")
	}
}

func TestBuildEpub_SingleChapterNoTOC(t *testing.T) {
	chapters := []chapter{
		{Title: "Only", HTMLContent: `<html><body><h1>Only</h1><p>content</p></body></html>`},
	}
	outPath := filepath.Join(t.TempDir(), "single.epub")
	meta := bookMeta{Title: "Single", Language: "en"}
	if err := buildEpub(chapters, meta, outPath); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == "EPUB/xhtml/contents.xhtml" {
			t.Error("single-chapter book should not get a front matter TOC")
		}
	}
}

// readZipFile reads the contents of a file from a zip reader by name.
func readZipFile(zr *zip.ReadCloser, name string) string {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return ""
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return ""
			}
			return string(data)
		}
	}
	return ""
}
