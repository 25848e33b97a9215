//go:build !nopdfium

package fileconvert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	pdfiumPool     pdfium.Pool
	pdfiumPoolOnce sync.Once
	pdfiumPoolErr  error
)

func initPdfiumPool() {
	pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
}

// PDFExtractor reads PDF text with PDFium compiled to WebAssembly.
type PDFExtractor struct {
	// InstanceTimeout bounds the wait for a free PDFium instance.
	InstanceTimeout time.Duration
}

// NewPDFExtractor creates a new PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{InstanceTimeout: 30 * time.Second}
}

func (x *PDFExtractor) ExtractText(ctx context.Context, data []byte) (*ExtractedText, error) {
	pageCount, err := pdfPageCount(data)
	if err != nil {
		return nil, err
	}

	pdfiumPoolOnce.Do(initPdfiumPool)
	if pdfiumPoolErr != nil {
		return nil, fmt.Errorf("init pdfium: %w", pdfiumPoolErr)
	}

	instance, err := pdfiumPool.GetInstance(x.InstanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("get pdfium instance: %w", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	var pages []string
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := instance.GetPageText(&requests.GetPageText{
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    i,
				},
			},
		})
		if err != nil {
			// Unreadable pages are skipped; the rest of the document still counts.
			continue
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			pages = append(pages, text)
		}
	}

	return &ExtractedText{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: pageCount,
	}, nil
}
