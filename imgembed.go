// Image embedding and optimization for e-reader output.
// External image URLs are downloaded and inlined as data URIs (EPUB forbids
// remote resources), then resized, optionally grayscaled, and JPEG-encoded.
package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}

// resize downscales an image using BiLinear resampling.
func resize(src image.Image, dstW, dstH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func toGrayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// flattenAlpha composites src onto a white background.
func flattenAlpha(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	white := image.NewUniform(color.White)
	draw.Draw(dst, b, white, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

type optimizeOpts struct {
	maxWidth       int
	quality        int
	grayscale      bool
	skipImageFetch bool // leave external images as URLs (markdown mode)
}

// optimizeImage returns the new data URI string and raw JPEG byte count,
// or empty string to signal "skip / pass through".
func optimizeImage(data []byte, mime string, opts optimizeOpts) (string, int) {
	// SVG and AVIF pass through (no Go decoder / already well-compressed),
	// as do animated GIFs.
	if strings.Contains(mime, "svg") || strings.Contains(mime, "avif") {
		return "", 0
	}
	if strings.Contains(mime, "gif") && isAnimatedGIF(data) {
		return "", 0
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(logOut, "Warning: could not decode image (%s): %v\n", mime, err)
		return "", 0
	}

	img = flattenAlpha(img)

	// Downscale by width only, never upscale.
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > opts.maxWidth {
		ratio := float64(opts.maxWidth) / float64(w)
		newH := int(math.Round(float64(h) * ratio))
		if newH < 1 {
			newH = 1
		}
		img = resize(img, opts.maxWidth, newH)
	}

	var encImg image.Image = img
	if opts.grayscale {
		encImg = toGrayscale(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, encImg, &jpeg.Options{Quality: opts.quality}); err != nil {
		fmt.Fprintf(logOut, "Warning: JPEG encode failed: %v\n", err)
		return "", 0
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return "data:image/jpeg;base64," + encoded, buf.Len()
}

var (
	// Matches <img ... src="data:mime;base64,DATA">
	dataURIRe = regexp.MustCompile(`(<img\b[^>]*?\bsrc\s*=\s*")data:([^;]+);base64,([^"]*)(")`)
	// Matches <img ... src="https://..."> (external URL images)
	extImgRe = regexp.MustCompile(`(<img\b[^>]*?\bsrc\s*=\s*")(https?://[^"]+)(")`)
	// Lazy-loading attributes (data-src / data-srcset)
	lazySrcRe    = regexp.MustCompile(`(<img\b[^>]*?)\bdata-src=`)
	lazySrcsetRe = regexp.MustCompile(`(<img\b[^>]*?)\bdata-srcset=`)
	lazyImgRe    = regexp.MustCompile(`<img\b[^>]*\bdata-src\s*=[^>]*>`)
	svgSrcAttrRe = regexp.MustCompile(`\bsrc\s*=\s*"data:image/svg\+xml;base64,[^"]*"`)
)

// getImageClient returns the HTTP client for fetching external images,
// falling back to a plain client for tests.
func getImageClient() *http.Client {
	if fetchImageClient != nil {
		return fetchImageClient
	}
	return &http.Client{}
}

// promoteLazySrc rewrites data-src="..." to src="..." on lazily loaded img
// tags, removing SVG placeholder src attrs first so promotion doesn't
// create duplicate src attributes.
func promoteLazySrc(htmlBytes []byte) []byte {
	htmlBytes = lazyImgRe.ReplaceAllFunc(htmlBytes, func(match []byte) []byte {
		return svgSrcAttrRe.ReplaceAll(match, nil)
	})
	htmlBytes = lazySrcRe.ReplaceAll(htmlBytes, []byte("${1}src="))
	htmlBytes = lazySrcsetRe.ReplaceAll(htmlBytes, []byte("${1}srcset="))
	return htmlBytes
}

// fetchOneImage downloads a single external image URL and returns its data
// URI components, or empty strings on failure.
func fetchOneImage(imgURL string) (mime, encoded string) {
	// Unescape HTML entities in URL (e.g. &amp; -> &)
	imgURL = html.UnescapeString(imgURL)

	resp, err := getImageClient().Get(imgURL)
	if err != nil {
		fmt.Fprintf(logOut, "Warning: could not fetch %s: %v\n", imgURL, err)
		return "", ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		fmt.Fprintf(logOut, "Warning: HTTP %d for %s\n", resp.StatusCode, imgURL)
		return "", ""
	}

	data, err := readLimited(resp.Body, maxResponseBytes)
	if err != nil {
		fmt.Fprintf(logOut, "Warning: could not read %s: %v\n", imgURL, err)
		return "", ""
	}

	m := resp.Header.Get("Content-Type")
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	m = strings.TrimSpace(m)
	if m == "" || m == "application/octet-stream" {
		m = http.DetectContentType(data)
		if i := strings.Index(m, ";"); i >= 0 {
			m = m[:i]
		}
	}

	return m, base64.StdEncoding.EncodeToString(data)
}

// fetchAndEmbed downloads external image URLs and embeds them as data URIs.
// Images are fetched concurrently; an image that fails to download is left
// as its original external reference.
func fetchAndEmbed(htmlBytes []byte, concurrency int) []byte {
	if concurrency < 1 {
		concurrency = 1
	}

	matches := extImgRe.FindAllSubmatchIndex(htmlBytes, -1)
	if len(matches) == 0 {
		return htmlBytes
	}

	type fetchResult struct {
		mime    string
		encoded string
	}
	results := make([]fetchResult, len(matches))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, m := range matches {
		imgURL := string(htmlBytes[m[4]:m[5]]) // group 2: the URL
		wg.Add(1)
		go func(i int, imgURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			mime, encoded := fetchOneImage(imgURL)
			results[i] = fetchResult{mime: mime, encoded: encoded}
		}(i, imgURL)
	}
	wg.Wait()

	var out bytes.Buffer
	prev := 0
	fetched := 0
	for i, m := range matches {
		out.Write(htmlBytes[prev:m[0]])
		if results[i].encoded != "" {
			out.Write(htmlBytes[m[2]:m[3]]) // prefix
			out.WriteString("data:")
			out.WriteString(results[i].mime)
			out.WriteString(";base64,")
			out.WriteString(results[i].encoded)
			out.Write(htmlBytes[m[6]:m[7]]) // closing quote
			fetched++
		} else {
			out.Write(htmlBytes[m[0]:m[1]]) // keep original
		}
		prev = m[1]
	}
	out.Write(htmlBytes[prev:])

	if fetched > 0 {
		fmt.Fprintf(logOut, "Fetched and embedded %d external images\n", fetched)
	}
	return out.Bytes()
}

// decodeBase64 tries standard then raw (no-padding) base64.
func decodeBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(s)
	}
	return raw, err
}

// processImages handles all image processing for a document body: promotes
// lazy-loaded images, fetches external images, and optimizes embedded ones.
// Runs after markup repair, which gives <picture> images a usable src.
func processImages(htmlBytes []byte, opts optimizeOpts, concurrency int) []byte {
	var count int
	var originalTotal, optimizedTotal int64

	htmlBytes = promoteLazySrc(htmlBytes)

	if !opts.skipImageFetch {
		htmlBytes = fetchAndEmbed(htmlBytes, concurrency)
	}

	htmlBytes = dataURIRe.ReplaceAllFunc(htmlBytes, func(match []byte) []byte {
		parts := dataURIRe.FindSubmatch(match)
		if parts == nil {
			return match
		}

		raw, err := decodeBase64(string(parts[3]))
		if err != nil {
			fmt.Fprintf(logOut, "Warning: broken base64, skipping: %v\n", err)
			return match
		}

		uri, jpegLen := optimizeImage(raw, string(parts[2]), opts)
		if uri == "" {
			return match
		}
		originalTotal += int64(len(raw))
		optimizedTotal += int64(jpegLen)
		count++

		var out bytes.Buffer
		out.Write(parts[1])
		out.WriteString(uri)
		out.Write(parts[4])
		return out.Bytes()
	})

	if count > 0 {
		fmt.Fprintf(logOut, "Optimized %d images: %s → %s\n",
			count, humanSize(originalTotal), humanSize(optimizedTotal))
	}

	return htmlBytes
}
