//go:build nopdfium

package fileconvert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads PDF text with the pure-Go ledongthuc/pdf reader.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (x *PDFExtractor) ExtractText(ctx context.Context, data []byte) (*ExtractedText, error) {
	pageCount, err := pdfPageCount(data)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if text := strings.TrimSpace(pageText(page)); text != "" {
			pages = append(pages, text)
		}
	}

	return &ExtractedText{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: pageCount,
	}, nil
}

// pageText joins a page's rows. An empty word between two non-empty words
// marks a word boundary, which the reader does not emit as a space.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var result strings.Builder
	for _, row := range rows {
		var line strings.Builder
		gap := false
		for _, word := range row.Content {
			if word.S == "" {
				gap = true
				continue
			}
			if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
				line.WriteString(" ")
			}
			line.WriteString(word.S)
			gap = false
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			result.WriteString(text)
			result.WriteString("\n")
		}
	}
	return result.String()
}
