// Package pdftext extracts page text from PDF files and joins it into a
// single document with [[PAGINA:n]] page markers.
package pdftext

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extraction is the text of one PDF.
type Extraction struct {
	Path string
	// Pages holds the plain text of each page; empty pages are kept.
	Pages []string
	// Text is Pages joined by JoinPages.
	Text string
}

// Extract reads every page of the PDF at path. ctx is checked between pages.
func Extract(ctx context.Context, path string) (*Extraction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages, err := ReadPages(ctx, r)
	if err != nil {
		return nil, err
	}
	return &Extraction{Path: path, Pages: pages, Text: JoinPages(pages)}, nil
}

// ReadPages returns the plain text of each page of r, in order.
func ReadPages(ctx context.Context, r *pdf.Reader) ([]string, error) {
	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(r, i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pageText extracts one page. The PDF reader panics on some malformed
// content streams, so panics are turned into errors.
func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page content: %v", rec)
		}
	}()
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// JoinPages prefixes each page with its marker and joins pages with a blank
// line. A page whose first line continues the previous page's last line is
// glued to it with a single space instead.
func JoinPages(pages []string) string {
	var parts []string
	for i, page := range pages {
		if len(parts) > 0 {
			prev := parts[len(parts)-1]
			lines := strings.Split(prev, "\n")
			idx, last := lastTextLine(lines)
			if idx >= 0 && ShouldJoin(last, firstTextLine(page)) {
				parts[len(parts)-1] = strings.Join(lines[:idx], "\n") + "\n" + last + " " + strings.TrimLeft(page, " \t\r\n")
				continue
			}
		}
		parts = append(parts, fmt.Sprintf("[[PAGINA:%d]]\n%s", i+1, page))
	}
	return strings.Join(parts, "\n\n")
}

var shortConnectives = map[string]bool{
	"de": true, "da": true, "do": true, "em": true, "ou": true,
	"e": true, "a": true, "o": true, "à": true, "ao": true,
}

// ShouldJoin reports whether nextFirst continues prevLast across a page break.
func ShouldJoin(prevLast, nextFirst string) bool {
	prevLast = strings.TrimSpace(prevLast)
	nextFirst = strings.TrimSpace(nextFirst)
	if prevLast == "" || nextFirst == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(nextFirst)
	end, _ := utf8.DecodeLastRuneInString(prevLast)
	if !strings.ContainsRune(".;:!?)", end) &&
		!unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return true
	}

	words := strings.Fields(prevLast)
	if shortConnectives[strings.TrimRight(strings.ToLower(words[len(words)-1]), ",;")] {
		return true
	}

	if first >= '0' && first <= '9' {
		head := []rune(nextFirst)
		if len(head) > 15 {
			head = head[:15]
		}
		if strings.ContainsRune(string(head), ')') {
			return true
		}
	}
	return false
}

// lastTextLine returns the index and trimmed text of the last non-empty line
// that is not a page marker, or -1.
func lastTextLine(lines []string) (int, string) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || isPageMarker(line) {
			continue
		}
		return i, line
	}
	return -1, ""
}

func firstTextLine(page string) string {
	for _, line := range strings.Split(page, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func isPageMarker(line string) bool {
	return strings.HasPrefix(line, "[[PAGINA:") && strings.HasSuffix(line, "]]")
}
