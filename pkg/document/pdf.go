package document

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	rpdf "rsc.io/pdf"
)

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (n int, err error) {
	defer recoverPDF(&err)
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return doc.NumPage(), nil
}

// ExtractText returns the text layer of a PDF, pages separated by a blank
// line. Scanned documents yield an empty string and no error.
func ExtractText(data []byte) (text string, err error) {
	defer recoverPDF(&err)
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		if t := pageText(page.Content().Text); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// pageText joins glyphs in content order, breaking lines when the baseline
// moves.
func pageText(glyphs []rpdf.Text) string {
	var b strings.Builder
	lastY := math.NaN()
	for _, g := range glyphs {
		if !math.IsNaN(lastY) && math.Abs(g.Y-lastY) > math.Max(g.FontSize/2, 1) {
			b.WriteByte('\n')
		}
		b.WriteString(g.S)
		lastY = g.Y
	}
	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// rsc.io/pdf panics on malformed input.
func recoverPDF(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}
