// bindery: fetch articles and tweets, bind them into clean HTML or epub.
//
// Single source mode:
//
//	bindery [options] <URL>
//
// Book mode (multiple sources):
//
//	bindery [options] -epub [-o output.epub] <URL|file.txt> [<URL|file.txt>...]
//
// Tweet and Twitter-article URLs are detected automatically; everything
// else is treated as a web article.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// logOut is the writer for informational/progress output.
// In silent mode it is set to io.Discard so only errors reach the user.
var logOut io.Writer = os.Stderr

// processURL runs the full pipeline for one URL: extraction, markup
// repair, and image embedding. Returns the processed document.
func processURL(rawURL string, opts optimizeOpts, timeout time.Duration, userAgent string, titleOverride string) (*document, error) {
	doc, err := extractContent(rawURL, timeout, userAgent)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(logOut, "Title: %s\n", doc.Title)

	if titleOverride != "" {
		doc.Title = titleOverride
	}

	body := repairMarkup(doc.ContentHTML)
	body = string(processImages([]byte(body), opts, 5))
	doc.ContentHTML = body

	return doc, nil
}

// readURLFile reads a file containing one URL per line, skipping blanks and
// comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// cliConfig holds parsed command-line options.
type cliConfig struct {
	opts          optimizeOpts
	output        string
	titleOverride string
	author        string
	timeout       time.Duration
	userAgent     string
	epubMode      bool
	markdownMode  bool
	sendMode      bool
	writeMeta     bool
	args          []string
}

// collectURLs expands the positional arguments into a URL list, reading
// .txt arguments as URL-list files. Returns the basename of the first .txt
// file for title derivation.
func collectURLs(args []string) ([]string, string, error) {
	var urls []string
	var txtFilename string
	for _, arg := range args {
		if strings.HasSuffix(arg, ".txt") {
			fileURLs, err := readURLFile(arg)
			if err != nil {
				return nil, "", fmt.Errorf("reading %s: %w", arg, err)
			}
			urls = append(urls, fileURLs...)
			if txtFilename == "" {
				name := arg
				if idx := strings.LastIndex(name, "/"); idx >= 0 {
					name = name[idx+1:]
				}
				txtFilename = strings.TrimSuffix(name, ".txt")
			}
		} else {
			urls = append(urls, arg)
		}
	}
	return urls, txtFilename, nil
}

// processAll runs processURL over every URL with bounded concurrency,
// preserving input order and skipping failures with a warning.
func processAll(urls []string, cfg cliConfig) []chapter {
	results := make([]*document, len(urls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, 5)

	for i, rawURL := range urls {
		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fmt.Fprintf(logOut, "[%d/%d] %s\n", i+1, len(urls), rawURL)
			doc, err := processURL(rawURL, cfg.opts, cfg.timeout, cfg.userAgent, "")
			if err != nil {
				fmt.Fprintf(logOut, "  Error: %v (skipping)\n", err)
				return
			}
			results[i] = doc
		}(i, rawURL)
	}
	wg.Wait()

	var chapters []chapter
	for _, doc := range results {
		if doc != nil {
			chapters = append(chapters, chapter{
				Title:       doc.Title,
				HTMLContent: doc.ContentHTML,
				Byline:      doc.Byline,
			})
		}
	}
	return chapters
}

// deriveBookTitle picks the book title: -title flag, then .txt filename,
// then the first chapter title.
func deriveBookTitle(cfg cliConfig, txtFilename string, chapters []chapter) string {
	if cfg.titleOverride != "" {
		return cfg.titleOverride
	}
	if txtFilename != "" {
		return txtFilename
	}
	if len(chapters) > 1 {
		return chapters[0].Title + " & more"
	}
	if len(chapters) == 1 {
		return chapters[0].Title
	}
	return "bindery"
}

// run executes the main application logic, returning any error.
func run(cfg cliConfig) error {
	if cfg.epubMode || cfg.markdownMode {
		if len(cfg.args) < 1 {
			return fmt.Errorf("book mode requires at least one URL or file argument")
		}

		urls, txtFilename, err := collectURLs(cfg.args)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs provided")
		}

		chapters := processAll(urls, cfg)
		if len(chapters) == 0 {
			return fmt.Errorf("no sources converted")
		}

		bookTitle := deriveBookTitle(cfg, txtFilename, chapters)

		if cfg.markdownMode {
			md, err := chaptersToMarkdown(chapters)
			if err != nil {
				return err
			}
			if cfg.output != "" {
				return os.WriteFile(cfg.output, []byte(md), 0644)
			}
			os.Stdout.WriteString(md)
			return nil
		}

		_, meta := assembleBook(chapters, bookTitle, cfg.author)

		// Chapter bodies carry their <h1> boundary headings; the epub
		// packager splits sections on them.
		bound := make([]chapter, len(chapters))
		for i, ch := range chapters {
			bound[i] = chapter{
				Title:       ch.Title,
				HTMLContent: assembleChapter(ch),
				Byline:      ch.Byline,
			}
		}

		output := cfg.output
		if output == "" {
			output = safeFilename(bookTitle) + ".epub"
		}

		fmt.Fprintf(logOut, "Building epub from %d chapters...\n", len(bound))
		if err := buildEpub(bound, meta, output); err != nil {
			return fmt.Errorf("building epub: %w", err)
		}
		fmt.Fprintf(logOut, "✓ %s (%d chapters)\n", output, len(bound))

		if cfg.writeMeta {
			metaPath := strings.TrimSuffix(output, ".epub") + ".meta"
			if err := os.WriteFile(metaPath, []byte(meta.render()), 0644); err != nil {
				return fmt.Errorf("writing metadata record: %w", err)
			}
		}

		if cfg.sendMode {
			mailCfg, err := loadMailConfig()
			if err != nil {
				return err
			}
			return sendFile(mailCfg, output)
		}
		return nil
	}

	// Single URL mode
	if len(cfg.args) != 1 {
		return fmt.Errorf("single URL mode requires exactly one URL argument")
	}

	doc, err := processURL(cfg.args[0], cfg.opts, cfg.timeout, cfg.userAgent, cfg.titleOverride)
	if err != nil {
		return err
	}

	final, meta := assembleSingle(doc)

	if cfg.output != "" {
		if err := os.WriteFile(cfg.output, []byte(final), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if cfg.writeMeta {
			metaPath := cfg.output + ".meta"
			if err := os.WriteFile(metaPath, []byte(meta.render()), 0644); err != nil {
				return fmt.Errorf("writing metadata record: %w", err)
			}
		}
	} else {
		os.Stdout.WriteString(final)
	}
	return nil
}

func main() {
	maxWidth := flag.Int("max-width", 800, "Max pixel width (height scales proportionally)")
	quality := flag.Int("quality", 60, "JPEG quality 1-95")
	grayscale := flag.Bool("grayscale", false, "Convert images to grayscale")
	output := flag.String("o", "", "Output file (default: stdout, or derived from title in epub mode)")
	titleOverride := flag.String("title", "", "Override article/book title")
	author := flag.String("author", "", "Override book author")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP fetch timeout")
	userAgent := flag.String("user-agent", defaultUA, "HTTP User-Agent header")
	epubMode := flag.Bool("epub", false, "Generate epub (accepts multiple URLs or a .txt file)")
	markdownMode := flag.Bool("markdown", false, "Output CommonMark Markdown instead of HTML/epub")
	sendMode := flag.Bool("send", false, "Email the epub using BINDERY_SMTP_* settings")
	writeMeta := flag.Bool("meta", false, "Write a metadata record next to the output file")
	silent := flag.Bool("silent", false, "Suppress all output except errors (for pipeline use)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bindery [options] <URL>\n")
		fmt.Fprintf(os.Stderr, "       bindery [options] -epub [-o out.epub] <URL|file.txt> [...]\n\n")
		fmt.Fprintf(os.Stderr, "Fetch articles and tweets, bind them into clean HTML or epub.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *silent {
		logOut = io.Discard
	}

	cfg := cliConfig{
		opts: optimizeOpts{
			maxWidth:       *maxWidth,
			quality:        *quality,
			grayscale:      *grayscale,
			skipImageFetch: *markdownMode,
		},
		output:        *output,
		titleOverride: *titleOverride,
		author:        *author,
		timeout:       *timeout,
		userAgent:     *userAgent,
		epubMode:      *epubMode,
		markdownMode:  *markdownMode,
		sendMode:      *sendMode,
		writeMeta:     *writeMeta,
		args:          flag.Args(),
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
