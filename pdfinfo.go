package fileconvert

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfcpuConfigOnce sync.Once

// pdfPageCount validates data as a PDF and returns its page count. Both PDF
// extractors use it so that "unreadable" and "readable but textless" are
// decided the same way regardless of the text backend.
func pdfPageCount(data []byte) (int, error) {
	pdfcpuConfigOnce.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("validate PDF: %w", err)
	}
	return n, nil
}
