// Cover image generation for epub output.
// Produces a deterministic geometric pattern seeded from the book title,
// with the title and chapter count overlaid as text.
package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1200
	coverHeight = 1800
)

// generateCover creates a PNG cover with a deterministic diamond pattern
// derived from the title and overlaid title text.
func generateCover(title string, chapterCount int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{0xFF}), image.Point{}, draw.Src)

	hash := sha256.Sum256([]byte(title))
	drawPattern(img, hash)

	boldFace, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return nil, fmt.Errorf("loading bold font: %w", err)
	}
	regularFace, err := loadFace(goregular.TTF, 32)
	if err != nil {
		return nil, fmt.Errorf("loading regular font: %w", err)
	}

	drawTitleBlock(img, title, chapterCount, boldFace, regularFace)

	// Tool mark in the bottom-right corner.
	drawLabel(img, "bindery", regularFace, coverWidth-40, coverHeight-40)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPattern fills the image with a grid of diamonds whose size and shade
// are determined by the hash bytes, leaving a clear central band for the
// title.
func drawPattern(img *image.Gray, hash [32]byte) {
	const (
		cols  = 10
		rows  = 15
		cellW = coverWidth / cols
		cellH = coverHeight / rows
		// Rows reserved for the title block (centre of image)
		titleRowStart = 6
		titleRowEnd   = 9
	)

	for row := 0; row < rows; row++ {
		if row >= titleRowStart && row <= titleRowEnd {
			continue
		}
		for col := 0; col < cols; col++ {
			idx := (row*cols + col) % len(hash)
			b := hash[idx] ^ byte(row*19+col*29)

			// Shade range that reads well on e-ink.
			shade := uint8(0x30 + int(b)*(0xD0-0x30)/255)

			idx2 := (idx + 11) % len(hash)
			b2 := hash[idx2] ^ byte(row*7+col*37)
			maxR := cellW / 2
			minR := maxR / 4
			radius := minR + (maxR-minR)*int(b2)/255

			cx := col*cellW + cellW/2
			cy := row*cellH + cellH/2
			fillDiamond(img, cx, cy, radius, color.Gray{shade})
		}
	}
}

// fillDiamond draws a filled diamond (rotated square) on a grayscale image.
func fillDiamond(img *image.Gray, cx, cy, radius int, c color.Gray) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if abs(dx)+abs(dy) <= radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < coverWidth && y >= 0 && y < coverHeight {
					img.SetGray(x, y, c)
				}
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// drawTitleBlock renders the word-wrapped title and chapter count centred
// on a cleared white band in the middle of the cover.
func drawTitleBlock(img *image.Gray, title string, chapterCount int, titleFace, metaFace font.Face) {
	const (
		bandTop    = 650
		bandBottom = 1150
		padX       = 80
		maxWidth   = coverWidth - padX*2
	)

	draw.Draw(img,
		image.Rect(0, bandTop, coverWidth, bandBottom),
		image.NewUniform(color.Gray{0xFF}),
		image.Point{},
		draw.Src,
	)

	// Thin horizontal rules above and below the band.
	for x := padX; x < coverWidth-padX; x++ {
		img.SetGray(x, bandTop+20, color.Gray{0x99})
		img.SetGray(x, bandBottom-20, color.Gray{0x99})
	}

	lines := wrapText(title, titleFace, maxWidth)
	lineHeight := titleFace.Metrics().Height.Ceil() + 8

	metaHeight := metaFace.Metrics().Height.Ceil() + 16
	totalHeight := len(lines)*lineHeight + metaHeight
	y := bandTop + (bandBottom-bandTop-totalHeight)/2 + titleFace.Metrics().Ascent.Ceil()

	for _, line := range lines {
		lineW := font.MeasureString(titleFace, line).Ceil()
		drawString(img, line, titleFace, (coverWidth-lineW)/2, y)
		y += lineHeight
	}

	y += 16
	meta := fmt.Sprintf("%d chapters", chapterCount)
	if chapterCount == 1 {
		meta = "1 chapter"
	}
	metaW := font.MeasureString(metaFace, meta).Ceil()
	drawString(img, meta, metaFace, (coverWidth-metaW)/2, y)
}

// drawLabel draws a small right-anchored text label.
func drawLabel(img *image.Gray, text string, face font.Face, x, y int) {
	x -= font.MeasureString(face, text).Ceil()
	drawString(img, text, face, x, y)
}

// drawString renders a string onto a grayscale image in black.
func drawString(img *image.Gray, s string, face font.Face, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{0x00}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText splits text into lines that fit within maxWidth pixels.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	lines = append(lines, current)
	return lines
}

// loadFace parses an OpenType font at the given size in points.
func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
