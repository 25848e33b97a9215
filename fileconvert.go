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

// Package fileconvert converts uploaded files between formats. It selects a
// pipeline from the (source kind, output kind) pair, runs it, and turns every
// failure into a *ConversionError.
package fileconvert

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/nicholasgasior/fileconvert-go/internal/record"
)

// Engine is the conversion dispatch engine. It is safe for concurrent use
// once constructed; Register must not be called after that point.
type Engine struct {
	routes map[Route]Pipeline
	order  []Route

	logger       *slog.Logger
	inference    record.InferencePolicy
	keepDataURIs bool
	now          func() time.Time

	pdf    TextExtractor
	docx   TextExtractor
	pptx   TextExtractor
	images ImageRecoder
}

// New creates an Engine with the built-in routes.
func New(opts ...Option) *Engine {
	e := &Engine{
		routes:    make(map[Route]Pipeline),
		inference: record.InferNumbers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.pdf == nil {
		e.pdf = NewPDFExtractor()
	}
	if e.docx == nil {
		e.docx = NewDocxExtractor()
	}
	if e.pptx == nil {
		e.pptx = NewPptxExtractor()
	}
	if e.images == nil {
		e.images = NewImageRecoder()
	}
	e.enableBuiltins()
	return e
}

// Register binds a pipeline to a route, replacing any existing binding.
func (e *Engine) Register(route Route, p Pipeline) {
	if _, ok := e.routes[route]; !ok {
		e.order = append(e.order, route)
	}
	e.routes[route] = p
}

// Routes lists the dispatch table in registration order.
func (e *Engine) Routes() []RouteInfo {
	out := make([]RouteInfo, 0, len(e.order))
	for _, r := range e.order {
		out = append(out, RouteInfo{Route: r, Pipeline: e.routes[r].Name()})
	}
	return out
}

// Supports reports whether a request with this filename, MIME type and output
// kind would be dispatched to a pipeline.
func (e *Engine) Supports(filename, mime, output string) bool {
	_, err := e.resolve(filename, mime, output)
	return err == nil
}

// resolve applies the whitelist gate and the route lookup. It never looks at
// the payload.
func (e *Engine) resolve(filename, mime, output string) (*resolved, error) {
	out, ok := ParseOutputKind(output)
	if !ok {
		return nil, unsupportedOutput(output)
	}
	source := ClassifySource(filename, mime)
	p, ok := e.routes[Route{Source: source, Output: out}]
	if !ok {
		return nil, noPipeline(source, out, filename)
	}
	return &resolved{pipeline: p, source: source, output: out}, nil
}

type resolved struct {
	pipeline Pipeline
	source   SourceKind
	output   OutputKind
}

// Convert runs one request through its pipeline. The returned error is always
// a *ConversionError.
func (e *Engine) Convert(ctx context.Context, req Request) (*Result, error) {
	r, err := e.resolve(req.Filename, req.MIMEType, req.Output)
	if err != nil {
		e.logger.Debug("conversion rejected", "filename", req.Filename, "output", req.Output, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	logger := e.logger.With("filename", req.Filename, "source", r.source, "output", r.output, "pipeline", r.pipeline.Name())
	logger.Debug("dispatching conversion", "bytes", len(req.Data))

	conv := &Conversion{
		Request: req,
		Source:  r.source,
		Output:  r.output,
		logger:  logger,
	}

	result, cerr := e.run(ctx, r.pipeline, conv)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, canceled(ctxErr)
	}
	if cerr != nil {
		if cerr.Kind == KindInternalFault {
			logger.Error("conversion failed", "error", cerr)
		} else {
			logger.Debug("conversion failed", "kind", cerr.Kind, "error", cerr)
		}
		return nil, cerr
	}

	result.Pipeline = r.pipeline.Name()
	result.Filename = e.suggestedFilename(req.Filename, r.output)
	return result, nil
}

// run is the pipeline boundary: panics and foreign errors become internal faults.
func (e *Engine) run(ctx context.Context, p Pipeline, conv *Conversion) (result *Result, cerr *ConversionError) {
	defer func() {
		if rec := recover(); rec != nil {
			conv.Logger().Error("pipeline panicked", "panic", rec, "stack", string(debug.Stack()))
			result, cerr = nil, internalFault(fmt.Errorf("pipeline %s panicked: %v", p.Name(), rec))
		}
	}()

	res, err := p.Convert(ctx, conv)
	if err != nil {
		return nil, asConversionError(err)
	}
	if res == nil {
		return nil, internalFault(fmt.Errorf("pipeline %s returned no result", p.Name()))
	}
	return res, nil
}

func (e *Engine) suggestedFilename(filename string, output OutputKind) string {
	return fmt.Sprintf("%s-converted-%d.%s", baseName(filename), e.now().UnixMilli(), output)
}

// enableBuiltins registers the built-in routes.
func (e *Engine) enableBuiltins() {
	tabular := NewTabularJSONPipeline(e.inference)
	sheets := NewSheetCSVPipeline()
	feeds := NewFeedPipeline()
	images := NewImagePipeline(e.images)

	e.Register(Route{SourceDocx, OutputMarkdown}, NewDocumentMarkupPipeline("DOCX", e.docx))
	e.Register(Route{SourcePDF, OutputText}, NewPDFTextPipeline(e.pdf))
	e.Register(Route{SourceCSV, OutputJSON}, tabular)
	e.Register(Route{SourceJSON, OutputCSV}, NewHierarchicalCSVPipeline())
	e.Register(Route{SourceImage, OutputPNG}, images)
	e.Register(Route{SourceImage, OutputJPG}, images)
	e.Register(Route{SourceImage, OutputJPEG}, images)
	e.Register(Route{SourceText, OutputMarkdown}, NewTextMarkupPipeline())

	e.Register(Route{SourceHTML, OutputMarkdown}, NewHTMLMarkupPipeline(e.keepDataURIs))
	e.Register(Route{SourceXlsx, OutputJSON}, tabular)
	e.Register(Route{SourceXls, OutputJSON}, tabular)
	e.Register(Route{SourceXlsx, OutputCSV}, sheets)
	e.Register(Route{SourceXls, OutputCSV}, sheets)
	e.Register(Route{SourceFeed, OutputJSON}, feeds)
	e.Register(Route{SourceFeed, OutputCSV}, feeds)
	e.Register(Route{SourcePptx, OutputMarkdown}, NewDocumentMarkupPipeline("PPTX", e.pptx))
}
