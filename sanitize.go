// HTML to XHTML sanitization for EPUB 3 compliance.
// Web extractions and tweet renderings both pass through here before being
// added to the book package.
package main

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type tagSet map[string]bool

func newTagSet(tags ...string) tagSet {
	s := make(tagSet, len(tags))
	for _, t := range tags {
		s[t] = true
	}
	return s
}

// Phrasing content that cannot contain block-level elements in EPUB XHTML.
var phrasingTags = newTagSet(
	"h1", "h2", "h3", "h4", "h5", "h6", "p",
	"span", "b", "strong", "i", "em", "a",
	"code", "samp", "kbd", "var", "sub", "sup",
	"small", "s", "u", "mark", "abbr", "dfn",
	"cite", "del", "ins", "bdi", "bdo", "time", "data",
)

// Block elements with internal structure that must survive being moved out
// of an inline parent.
var structuralBlockTags = newTagSet(
	"table", "pre", "ul", "ol", "dl", "blockquote", "figure",
)

// Block-level elements that cannot nest inside phrasing content.
var blockTags = newTagSet(
	"p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
	"ul", "ol", "li", "dl", "dt", "dd",
	"blockquote", "section", "article", "aside",
	"header", "footer", "main", "figure", "figcaption", "nav",
	"table", "pre", "hr", "address",
)

// Elements that may legitimately carry width/height attributes.
var dimensionTags = newTagSet("img", "td", "th", "col", "colgroup", "table")

// The EPUB 3 XHTML element allowlist.
var allowedTags = newTagSet(
	"div", "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "dl", "dt", "dd",
	"address", "hr", "pre", "blockquote", "cite", "em", "strong", "small", "s", "dfn",
	"abbr", "data", "time", "code", "var", "samp", "kbd", "sub", "sup", "i", "b", "u",
	"mark", "ruby", "rt", "rp", "bdi", "bdo", "span", "br", "wbr", "ins", "del", "img",
	"table", "caption", "colgroup", "col", "tbody", "thead", "tfoot", "tr", "td", "th",
	"section", "article", "aside", "header", "footer", "main", "figure", "figcaption", "nav",
	"a",
)

// voidElements are HTML elements that must be self-closing in XHTML.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Wbr: true,
}

// stripInvalidXMLChars removes characters not allowed in XML 1.0 content.
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0x9 || r == 0xA || r == 0xD ||
			(r >= 0x20 && r <= 0xD7FF) ||
			(r >= 0xE000 && r <= 0xFFFD) ||
			(r >= 0x10000 && r <= 0x10FFFF) {
			return r
		}
		return -1
	}, s)
}

// sanitizeDimensionAttr cleans width/height values to valid EPUB integers.
func sanitizeDimensionAttr(val string) string {
	val = strings.TrimSpace(val)
	for _, suffix := range []string{"px", "em", "rem", "%", "pt"} {
		val = strings.TrimSuffix(val, suffix)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return ""
	}
	return strconv.Itoa(int(math.Round(f)))
}

// sanitizeID cleans an id attribute value (no whitespace, non-empty).
func sanitizeID(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range val {
		if unicode.IsSpace(r) {
			b.WriteByte('-')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isAllowedAttr defines which attributes are safe for EPUB 3 XHTML content.
func isAllowedAttr(a html.Attribute) bool {
	switch a.Key {
	case "id", "class", "style", "title", "lang", "dir",
		"href", "src", "alt", "width", "height",
		"colspan", "rowspan", "scope", "headers",
		"cite", "datetime", "value", "type",
		"rel", "media", "start", "reversed":
		return true
	}
	return a.Key == "epub:type"
}

// attrVal returns the value of the named attribute, or "".
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// mediaToLink converts a video/audio element into a plain link to its
// source, or nil if no source can be found.
func mediaToLink(n *html.Node) *html.Node {
	src := attrVal(n, "src")
	if src == "" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "source" {
				if src = attrVal(c, "src"); src != "" {
					break
				}
			}
		}
	}
	if src == "" {
		return nil
	}
	link := &html.Node{
		Type: html.ElementNode,
		Data: "a",
		Attr: []html.Attribute{{Key: "href", Val: src}},
	}
	link.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: "[Media: " + src + "]",
	})
	return link
}

// sanitizeForXHTML converts HTML to valid XHTML for epub packaging.
// Strips non-standard attributes, enforces the element allowlist, converts
// leftover media elements to links, and removes broken fragment links.
func sanitizeForXHTML(htmlStr string) string {
	htmlStr = stripInvalidXMLChars(htmlStr)

	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr // fallback: return as-is
	}

	// Collect all sanitized IDs so broken fragment links can be dropped.
	ids := map[string]bool{}
	var collectIDs func(*html.Node)
	collectIDs = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if cleaned := sanitizeID(attrVal(n, "id")); cleaned != "" {
				ids[cleaned] = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectIDs(c)
		}
	}
	collectIDs(doc)

	usedIDs := map[string]bool{}

	var clean func(*html.Node) *html.Node
	clean = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "video", "audio":
				// Leftover media tags become links.
				return mediaToLink(n)
			case "source":
				// <source> requires srcset in EPUB XHTML; the repair pass
				// should already have collapsed useful ones.
				return nil
			case "picture":
				// Collapse any remaining <picture> to its first <img> child.
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.Data == "img" {
						n.RemoveChild(c)
						return clean(c)
					}
				}
				return nil
			case "html", "head", "body":
				// Parse-tree scaffolding stays so body extraction works.
			case "img":
				// Images must have a non-remote src; remote resources are
				// not allowed in EPUB (RSC-006) and should have been
				// inlined by the embedding pass.
				src := strings.TrimSpace(attrVal(n, "src"))
				if src == "" {
					return nil
				}
				if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
					return nil
				}
			default:
				if !allowedTags[n.Data] {
					return nil
				}
			}

			var filtered []html.Attribute
			for _, a := range n.Attr {
				if !isAllowedAttr(a) {
					continue
				}
				if a.Key == "href" && strings.HasPrefix(a.Val, "#") {
					frag := a.Val[1:]
					if frag != "" && !ids[frag] {
						continue // drop href to non-existent ID
					}
				}
				if a.Key == "id" {
					cleaned := sanitizeID(a.Val)
					if cleaned == "" {
						continue
					}
					if usedIDs[cleaned] {
						for i := 2; ; i++ {
							candidate := fmt.Sprintf("%s-%d", cleaned, i)
							if !usedIDs[candidate] {
								cleaned = candidate
								break
							}
						}
					}
					usedIDs[cleaned] = true
					a.Val = cleaned
				}
				if a.Key == "width" || a.Key == "height" {
					if !dimensionTags[n.Data] {
						continue
					}
					cleaned := sanitizeDimensionAttr(a.Val)
					if cleaned == "" || cleaned == "0" {
						continue
					}
					a.Val = cleaned
				}
				filtered = append(filtered, a)
			}
			n.Attr = filtered

			// Phrasing elements cannot contain block elements.
			if phrasingTags[n.Data] {
				for c := n.FirstChild; c != nil; {
					next := c.NextSibling
					if c.Type == html.ElementNode && blockTags[c.Data] {
						if structuralBlockTags[c.Data] && n.Parent != nil {
							// Move structural blocks above all phrasing
							// ancestors intact.
							n.RemoveChild(c)
							target := n
							for target.Parent != nil && target.Parent.Type == html.ElementNode && phrasingTags[target.Parent.Data] {
								target = target.Parent
							}
							if target.Parent != nil {
								target.Parent.InsertBefore(c, target)
							}
						} else {
							// Simple wrappers: unwrap children inline.
							for cc := c.FirstChild; cc != nil; {
								cnext := cc.NextSibling
								c.RemoveChild(cc)
								n.InsertBefore(cc, c)
								cc = cnext
							}
							n.RemoveChild(c)
						}
					}
					c = next
				}
			}
		}

		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if result := clean(c); result == nil {
				n.RemoveChild(c)
			} else if result != c {
				n.InsertBefore(result, c)
				n.RemoveChild(c)
			}
			c = next
		}
		return n
	}
	clean(doc)

	var buf bytes.Buffer
	renderXHTML(&buf, doc)

	result := buf.String()

	// html.Parse wraps in <html><head><body>; extract just the body content.
	if idx := strings.Index(result, "<body>"); idx >= 0 {
		result = result[idx+len("<body>"):]
		if end := strings.LastIndex(result, "</body>"); end >= 0 {
			result = result[:end]
		}
	}

	return result
}

// renderXHTML renders an html.Node tree as XHTML (self-closing void elements).
func renderXHTML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteString(`="`)
			buf.WriteString(html.EscapeString(a.Val))
			buf.WriteByte('"')
		}
		if voidElements[n.DataAtom] && n.FirstChild == nil {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
	case html.CommentNode:
		// skip comments
	case html.RawNode:
		buf.WriteString(n.Data)
	}
}
