// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package fileconvert

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TextExtractor pulls raw text out of an opaque binary document.
type TextExtractor interface {
	// ExtractText returns the document text and its page count. It returns an
	// error only when the document cannot be read at all; a readable document
	// without text yields empty Text and a nil error.
	ExtractText(ctx context.Context, data []byte) (*ExtractedText, error)
}

// ExtractedText is the raw output of a TextExtractor.
type ExtractedText struct {
	Text      string
	PageCount int
}

// ExtractionOutcome is one of *Extracted, *EmptyButValid or *ExtractionFailure.
type ExtractionOutcome interface {
	extractionOutcome()
}

// Extracted is a successful extraction with usable text. Text is normalized
// and never blank.
type Extracted struct {
	Text      string
	PageCount int
}

// EmptyButValid is a readable document that produced no usable text.
type EmptyButValid struct {
	PageCount int
	ByteSize  int
}

// ExtractionFailure means the extraction capability itself failed.
type ExtractionFailure struct {
	Message string
	Err     error
}

func (*Extracted) extractionOutcome()         {}
func (*EmptyButValid) extractionOutcome()     {}
func (*ExtractionFailure) extractionOutcome() {}

// Extract runs x over data and classifies the result.
func Extract(ctx context.Context, x TextExtractor, data []byte) ExtractionOutcome {
	out, err := x.ExtractText(ctx, data)
	if err != nil {
		return &ExtractionFailure{Message: err.Error(), Err: err}
	}
	if out == nil {
		return &ExtractionFailure{Message: "extractor returned no result", Err: errors.New("extractor returned no result")}
	}
	text := normalizeOutput(out.Text)
	if text == "" {
		return &EmptyButValid{PageCount: out.PageCount, ByteSize: len(data)}
	}
	return &Extracted{Text: text, PageCount: out.PageCount}
}

var emptyExtractionCauses = []string{
	"The document consists of scanned images without a text layer",
	"Text is drawn as vector outlines rather than characters",
	"Embedded fonts have no Unicode mapping",
	"The document is protected against content extraction",
}

var failedExtractionCauses = []string{
	"The file is corrupted or truncated",
	"The file is password protected",
	"The file uses a sub-format or version that is not supported",
}

var failedExtractionSuggestions = []string{
	"Open the file in its original application and save or export it again",
	"Run OCR on the document and upload the result",
	"Convert the document to plain text or another format first",
}

// extractionReport renders the diagnostic payload for an EmptyButValid outcome.
func extractionReport(kind string, o *EmptyButValid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Document Analysis\n", kind)
	b.WriteString(strings.Repeat("=", len(kind)+len(" Document Analysis")))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Pages: %d\n", o.PageCount)
	fmt.Fprintf(&b, "File size: %d bytes\n\n", o.ByteSize)
	b.WriteString("No extractable text was found in this document. Likely causes:\n")
	for _, c := range emptyExtractionCauses {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nThe file itself was received and read correctly.\n")
	return b.String()
}

// extractionFailed builds the failure for an ExtractionFailure outcome.
func extractionFailed(kind string, o *ExtractionFailure) *ConversionError {
	return &ConversionError{
		Kind:    KindExtractionFailed,
		Message: fmt.Sprintf("could not extract text from %s: %s", kind, o.Message),
		Diagnostics: &Diagnostics{
			Causes:      failedExtractionCauses,
			Suggestions: failedExtractionSuggestions,
		},
		Err: o.Err,
	}
}

// PDFTextPipeline extracts plain text from PDF documents on a best-effort basis.
type PDFTextPipeline struct {
	extractor TextExtractor
}

// NewPDFTextPipeline creates a new PDFTextPipeline.
func NewPDFTextPipeline(x TextExtractor) *PDFTextPipeline {
	return &PDFTextPipeline{extractor: x}
}

func (p *PDFTextPipeline) Name() string { return "pdf-text" }

func (p *PDFTextPipeline) Convert(ctx context.Context, c *Conversion) (*Result, error) {
	switch o := Extract(ctx, p.extractor, c.Data).(type) {
	case *Extracted:
		return &Result{
			Payload:     []byte(o.Text + "\n"),
			ContentType: contentTypeText,
		}, nil
	case *EmptyButValid:
		c.Logger().Warn("no text extracted", "pages", o.PageCount, "bytes", o.ByteSize)
		return &Result{
			Payload:     []byte(extractionReport("PDF", o)),
			ContentType: contentTypeText,
			Diagnostic:  true,
		}, nil
	case *ExtractionFailure:
		return nil, extractionFailed("PDF", o)
	}
	return nil, errors.New("unknown extraction outcome")
}

// DocumentMarkupPipeline wraps the raw text of an office document in markdown.
type DocumentMarkupPipeline struct {
	kind      string
	extractor TextExtractor
}

// NewDocumentMarkupPipeline creates a pipeline for documents of the given
// kind label (e.g. "DOCX") read by x.
func NewDocumentMarkupPipeline(kind string, x TextExtractor) *DocumentMarkupPipeline {
	return &DocumentMarkupPipeline{kind: kind, extractor: x}
}

func (p *DocumentMarkupPipeline) Name() string { return "document-markup" }

func (p *DocumentMarkupPipeline) Convert(ctx context.Context, c *Conversion) (*Result, error) {
	var body string
	diagnostic := false

	switch o := Extract(ctx, p.extractor, c.Data).(type) {
	case *Extracted:
		body = o.Text
	case *EmptyButValid:
		c.Logger().Warn("no text extracted", "pages", o.PageCount, "bytes", o.ByteSize)
		body = extractionReport(p.kind, o)
		diagnostic = true
	case *ExtractionFailure:
		return nil, extractionFailed(p.kind, o)
	default:
		return nil, errors.New("unknown extraction outcome")
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", c.BaseName())
	fmt.Fprintf(&md, "*Converted from %s document*\n\n", p.kind)
	md.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		md.WriteString("\n")
	}

	return &Result{
		Payload:     []byte(md.String()),
		ContentType: contentTypeMarkdown,
		Diagnostic:  diagnostic,
	}, nil
}
