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
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nicholasgasior/fileconvert-go/internal/ooxml"
)

// DocxExtractor reads the raw paragraph text of a DOCX body.
type DocxExtractor struct{}

// NewDocxExtractor creates a new DocxExtractor.
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (x *DocxExtractor) ExtractText(_ context.Context, data []byte) (*ExtractedText, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}

	body, err := pkg.ReadPart("word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}

	paras, err := ooxml.Paragraphs(body, ooxml.WordprocessingText)
	if err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	return &ExtractedText{
		Text:      strings.Join(paras, "\n"),
		PageCount: pkg.AppPages(),
	}, nil
}

// PptxExtractor reads slide text, and speaker notes, in presentation order.
type PptxExtractor struct{}

// NewPptxExtractor creates a new PptxExtractor.
func NewPptxExtractor() *PptxExtractor {
	return &PptxExtractor{}
}

func (x *PptxExtractor) ExtractText(ctx context.Context, data []byte) (*ExtractedText, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, fmt.Errorf("read PPTX: %w", err)
	}
	if !pkg.Has("ppt/presentation.xml") {
		return nil, fmt.Errorf("read PPTX: %w", ooxml.ErrPartNotFound)
	}

	slides, err := slideOrder(pkg)
	if err != nil {
		return nil, fmt.Errorf("get slide order: %w", err)
	}

	var sections []string
	for _, slidePath := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slideData, err := pkg.ReadPart(slidePath)
		if err != nil {
			continue
		}
		paras, err := ooxml.Paragraphs(slideData, ooxml.DrawingText)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", slidePath, err)
		}
		if text := joinNonBlank(paras); text != "" {
			sections = append(sections, text)
		}
		if notes := slideNotes(pkg, slidePath); notes != "" {
			sections = append(sections, notes)
		}
	}

	return &ExtractedText{
		Text:      strings.Join(sections, "\n\n"),
		PageCount: len(slides),
	}, nil
}

// slideOrder returns slide part names in presentation order, falling back to
// name order when presentation.xml lists none.
func slideOrder(pkg *ooxml.Package) ([]string, error) {
	const presentation = "ppt/presentation.xml"

	presData, err := pkg.ReadPart(presentation)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.Relationships(presentation)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(bytes.NewReader(presData))
	var slides []string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sldId" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == "id" && strings.Contains(attr.Name.Space, "relationships") {
				if rel, ok := rels[attr.Value]; ok {
					slides = append(slides, ooxml.ResolveTarget(presentation, rel.Target))
				}
			}
		}
	}

	if len(slides) == 0 {
		slides = pkg.PartNames("ppt/slides/slide", ".xml")
	}
	return slides, nil
}

func slideNotes(pkg *ooxml.Package, slidePath string) string {
	rels, err := pkg.Relationships(slidePath)
	if err != nil {
		return ""
	}
	for _, rel := range rels {
		if !strings.HasSuffix(rel.Type, "/notesSlide") {
			continue
		}
		data, err := pkg.ReadPart(ooxml.ResolveTarget(slidePath, rel.Target))
		if err != nil {
			return ""
		}
		paras, err := ooxml.Paragraphs(data, ooxml.DrawingText)
		if err != nil {
			return ""
		}
		return joinNonBlank(paras)
	}
	return ""
}

func joinNonBlank(lines []string) string {
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
