package ocr

import (
	"fmt"
	"image"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ParseHOCR reads the lines and words of an hOCR document, as produced by
// Tesseract's hOCR renderer. It returns ErrNoPages when the document has no
// ocr_page element.
func ParseHOCR(r io.Reader) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse hOCR: %w", err)
	}

	var lines []Line
	pages := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := strings.Fields(attr(n, "class"))
			if slices.Contains(classes, "ocr_page") {
				pages++
			}
			if isLineClass(classes) {
				if l := parseLine(n); l.Text != "" {
					lines = append(lines, l)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if pages == 0 {
		return Result{}, ErrNoPages
	}
	return resultFromLines("", lines), nil
}

func isLineClass(classes []string) bool {
	for _, c := range classes {
		switch c {
		case "ocr_line", "ocrx_line", "ocr_caption", "ocr_textfloat", "ocr_header":
			return true
		}
	}
	return false
}

func parseLine(n *html.Node) Line {
	var words []Word
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && slices.Contains(strings.Fields(attr(n, "class")), "ocrx_word") {
			if w := parseWord(n); w.Text != "" {
				words = append(words, w)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	if len(words) == 0 {
		return Line{Text: strings.TrimSpace(textContent(n))}
	}
	var b strings.Builder
	for i, w := range words {
		if i > 0 && needsSpace(words[i-1].Text, w.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
	}
	return Line{Text: b.String(), Words: words}
}

func parseWord(n *html.Node) Word {
	w := Word{Text: strings.TrimSpace(textContent(n))}
	props := parseTitle(attr(n, "title"))
	if bbox := props["bbox"]; len(bbox) == 4 {
		var v [4]int
		for i, s := range bbox {
			v[i], _ = strconv.Atoi(s)
		}
		w.Bounds = image.Rect(v[0], v[1], v[2], v[3])
	}
	if conf := props["x_wconf"]; len(conf) == 1 {
		if f, err := strconv.ParseFloat(conf[0], 64); err == nil {
			w.Confidence = f / 100
		}
	}
	return w
}

// parseTitle splits an hOCR title such as "bbox 10 20 30 40; x_wconf 95"
// into its properties.
func parseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			props[fields[0]] = fields[1:]
		}
	}
	return props
}

// needsSpace reports whether two adjacent words are separated by a space.
// Han text is written without spaces.
func needsSpace(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	return !unicode.Is(unicode.Han, last) && !unicode.Is(unicode.Han, first)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
