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
	"path/filepath"
	"strings"
)

// OutputKind is a requested output format.
type OutputKind string

const (
	OutputMarkdown OutputKind = "md"
	OutputText     OutputKind = "txt"
	OutputJSON     OutputKind = "json"
	OutputCSV      OutputKind = "csv"
	OutputPDF      OutputKind = "pdf"
	OutputDocx     OutputKind = "docx"
	OutputPNG      OutputKind = "png"
	OutputJPG      OutputKind = "jpg"
	OutputJPEG     OutputKind = "jpeg"
)

// outputKinds is the whitelist, in display order. pdf and docx are accepted
// here but no route produces them.
var outputKinds = []OutputKind{
	OutputMarkdown, OutputText, OutputJSON, OutputCSV, OutputPDF, OutputDocx, OutputPNG, OutputJPG, OutputJPEG,
}

// OutputKinds returns the whitelisted output kinds.
func OutputKinds() []OutputKind {
	out := make([]OutputKind, len(outputKinds))
	copy(out, outputKinds)
	return out
}

func outputKindNames() []string {
	names := make([]string, len(outputKinds))
	for i, k := range outputKinds {
		names[i] = string(k)
	}
	return names
}

// ParseOutputKind validates s against the whitelist. Case, surrounding
// whitespace and a leading dot are ignored.
func ParseOutputKind(s string) (OutputKind, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for _, k := range outputKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// SourceKind is the detected kind of an uploaded payload.
type SourceKind string

const (
	SourceUnknown SourceKind = "unknown"
	SourceDocx    SourceKind = "docx"
	SourcePDF     SourceKind = "pdf"
	SourceCSV     SourceKind = "csv"
	SourceJSON    SourceKind = "json"
	SourceImage   SourceKind = "image"
	SourceText    SourceKind = "txt"
	SourceHTML    SourceKind = "html"
	SourceXlsx    SourceKind = "xlsx"
	SourceXls     SourceKind = "xls"
	SourceFeed    SourceKind = "feed"
	SourcePptx    SourceKind = "pptx"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// sourcePredicate matches a lowercased extension and declared MIME type.
type sourcePredicate struct {
	kind    SourceKind
	matches func(ext, mime string) bool
}

func extIs(exts ...string) func(ext, mime string) bool {
	return func(ext, _ string) bool {
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

// sourcePredicates is evaluated in order; the first match wins. Only the image
// family looks at the declared MIME type.
var sourcePredicates = []sourcePredicate{
	{SourceDocx, extIs(".docx")},
	{SourcePDF, extIs(".pdf")},
	{SourceCSV, extIs(".csv")},
	{SourceJSON, extIs(".json")},
	{SourceImage, func(ext, mime string) bool {
		return strings.HasPrefix(mime, "image/") || imageExtensions[ext]
	}},
	{SourceText, extIs(".txt")},
	{SourceHTML, extIs(".html", ".htm")},
	{SourceXlsx, extIs(".xlsx")},
	{SourceXls, extIs(".xls")},
	{SourceFeed, extIs(".rss", ".atom")},
	{SourcePptx, extIs(".pptx")},
}

// ClassifySource determines the source kind from the filename suffix and, for
// images only, the declared MIME type.
func ClassifySource(filename, mime string) SourceKind {
	ext := strings.ToLower(filepath.Ext(filename))
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, p := range sourcePredicates {
		if p.matches(ext, mime) {
			return p.kind
		}
	}
	return SourceUnknown
}

// Route is the key of the dispatch table.
type Route struct {
	Source SourceKind
	Output OutputKind
}

// RouteInfo describes one row of the dispatch table.
type RouteInfo struct {
	Route
	Pipeline string
}

// Content types produced by the built-in pipelines.
const (
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeText     = "text/plain; charset=utf-8"
	contentTypeJSON     = "application/json; charset=utf-8"
	contentTypeCSV      = "text/csv; charset=utf-8"
	contentTypePNG      = "image/png"
	contentTypeJPEG     = "image/jpeg"
)
