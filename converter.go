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
	"log/slog"
	"path/filepath"
	"strings"
)

// Request is a single conversion job: a fully buffered upload plus the
// requested output kind. The engine never modifies it.
type Request struct {
	Data     []byte
	Filename string
	MIMEType string
	// Charset is an optional decoding hint for text payloads.
	Charset string
	// Output is the requested output kind, e.g. "json" or "png".
	Output string
}

// Result holds the output of a successful conversion.
type Result struct {
	Payload     []byte
	ContentType string
	// Filename is the suggested attachment name,
	// <basename>-converted-<unix millis>.<output>.
	Filename string
	Pipeline string
	// Diagnostic is set when the payload is a report explaining why no text
	// could be extracted, rather than the extracted text itself.
	Diagnostic bool
}

// Pipeline is a fixed transformation for one or more routes.
type Pipeline interface {
	Name() string

	// Convert runs the transformation. Returned errors that are not
	// *ConversionError are reported as internal faults.
	Convert(ctx context.Context, c *Conversion) (*Result, error)
}

// Conversion is the view of a request a pipeline works with.
type Conversion struct {
	Request
	Source SourceKind
	Output OutputKind

	logger *slog.Logger
}

// Logger returns the engine logger annotated with the request's route.
func (c *Conversion) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// BaseName returns the source filename without directory or extension.
func (c *Conversion) BaseName() string {
	return baseName(c.Filename)
}

// Text decodes the payload to UTF-8 using the charset hint or detection.
func (c *Conversion) Text() string {
	return decodeText(c.Data, c.Charset)
}

func baseName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}
