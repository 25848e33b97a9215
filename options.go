package fileconvert

import (
	"log/slog"
	"time"

	"github.com/nicholasgasior/fileconvert-go/internal/record"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithNumberInference controls whether numeric-looking tabular cells become
// JSON numbers (default: true). Disable it to keep codes like "007" intact.
func WithNumberInference(enabled bool) Option {
	return func(e *Engine) {
		if enabled {
			e.inference = record.InferNumbers
		} else {
			e.inference = record.InferNone
		}
	}
}

// WithKeepDataURIs configures whether to keep full data URIs in HTML output
// (default: false, which truncates them to data:mime/type;base64...).
func WithKeepDataURIs(keep bool) Option {
	return func(e *Engine) {
		e.keepDataURIs = keep
	}
}

// WithPDFExtractor replaces the PDF text capability.
func WithPDFExtractor(x TextExtractor) Option {
	return func(e *Engine) {
		e.pdf = x
	}
}

// WithDocxExtractor replaces the DOCX text capability.
func WithDocxExtractor(x TextExtractor) Option {
	return func(e *Engine) {
		e.docx = x
	}
}

// WithPptxExtractor replaces the PPTX text capability.
func WithPptxExtractor(x TextExtractor) Option {
	return func(e *Engine) {
		e.pptx = x
	}
}

// WithImageRecoder replaces the image recoding capability.
func WithImageRecoder(r ImageRecoder) Option {
	return func(e *Engine) {
		e.images = r
	}
}

// WithClock sets the time source used for suggested filenames.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}
