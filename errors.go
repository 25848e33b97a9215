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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed conversion.
type ErrorKind string

const (
	// KindUnsupported: unknown output kind, or no pipeline for the pair.
	KindUnsupported ErrorKind = "unsupported"
	// KindExtractionFailed: the document text capability itself errored.
	KindExtractionFailed ErrorKind = "extraction_failed"
	// KindMalformedInput: the payload could not be parsed as its declared kind.
	KindMalformedInput ErrorKind = "malformed_input"
	// KindInternalFault: anything else that went wrong inside a pipeline.
	KindInternalFault ErrorKind = "internal_fault"
	// KindCanceled: the caller's context ended before a result was returned.
	KindCanceled ErrorKind = "canceled"
)

var (
	// ErrUnknownOutput is wrapped when the requested output kind is not whitelisted.
	ErrUnknownOutput = errors.New("unknown output format")
	// ErrNoPipeline is wrapped when no pipeline converts the source kind to the output kind.
	ErrNoPipeline = errors.New("no conversion pipeline")
)

// genericSuggestions accompany every internal fault.
var genericSuggestions = []string{
	"Try a smaller file",
	"Try converting to a different output format",
	"Retry the conversion",
}

// Diagnostics carries the structured detail attached to a failure.
type Diagnostics struct {
	Causes      []string `json:"causes,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ConversionError is the only error type returned by Engine.Convert.
type ConversionError struct {
	Kind        ErrorKind
	Message     string
	Diagnostics *Diagnostics
	Err         error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func unsupportedOutput(output string) *ConversionError {
	return &ConversionError{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("output format %q is not supported; expected one of %s", output, strings.Join(outputKindNames(), ", ")),
		Err:     ErrUnknownOutput,
	}
}

func noPipeline(source SourceKind, output OutputKind, filename string) *ConversionError {
	return &ConversionError{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("cannot convert %s (%s) to %s", filename, source, output),
		Err:     ErrNoPipeline,
	}
}

func malformedInput(what string, err error) *ConversionError {
	return &ConversionError{
		Kind:    KindMalformedInput,
		Message: fmt.Sprintf("invalid %s input: %v", what, err),
		Err:     err,
	}
}

func internalFault(err error) *ConversionError {
	return &ConversionError{
		Kind:        KindInternalFault,
		Message:     err.Error(),
		Diagnostics: &Diagnostics{Suggestions: genericSuggestions},
		Err:         err,
	}
}

// asConversionError reshapes any pipeline error at the pipeline boundary.
func asConversionError(err error) *ConversionError {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce
	}
	return internalFault(err)
}

// KindOf returns the kind of a conversion error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsUnsupported reports whether the error is an unsupported-conversion failure.
func IsUnsupported(err error) bool {
	return KindOf(err) == KindUnsupported
}

func canceled(err error) *ConversionError {
	return &ConversionError{
		Kind:    KindCanceled,
		Message: "conversion canceled",
		Err:     err,
	}
}
