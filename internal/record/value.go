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

// Package record implements ordered key-value records and the flatten/unflatten
// transforms used to move data between hierarchical (JSON) and tabular (CSV) shapes.
package record

import (
	"encoding/json"
	"strings"
)

// ScalarKind identifies the type of a Scalar.
type ScalarKind uint8

const (
	Null ScalarKind = iota
	String
	Number
	Bool
)

func (k ScalarKind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	}
	return "unknown"
}

// Scalar is a leaf value. Numbers keep their canonical JSON literal so that
// serialization never changes precision.
type Scalar struct {
	kind ScalarKind
	text string
}

// NullScalar returns the null scalar.
func NullScalar() Scalar { return Scalar{kind: Null} }

// StringScalar returns a string scalar.
func StringScalar(s string) Scalar { return Scalar{kind: String, text: s} }

// NumberScalar returns a number scalar. literal must be a valid JSON number.
func NumberScalar(literal string) Scalar { return Scalar{kind: Number, text: literal} }

// BoolScalar returns a boolean scalar.
func BoolScalar(b bool) Scalar {
	if b {
		return Scalar{kind: Bool, text: "true"}
	}
	return Scalar{kind: Bool, text: "false"}
}

// Kind returns the scalar type.
func (s Scalar) Kind() ScalarKind { return s.kind }

// Text returns the cell representation of the scalar. Null is the empty string.
func (s Scalar) Text() string { return s.text }

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case Number, Bool:
		return []byte(s.text), nil
	case String:
		return json.Marshal(s.text)
	}
	return []byte("null"), nil
}

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	KindScalar ValueKind = iota
	KindNested
	KindSequence
)

// Value is the tagged variant stored in a Record: a Scalar, a nested Record,
// or a sequence of Scalars.
type Value struct {
	kind   ValueKind
	scalar Scalar
	nested *Record
	seq    []Scalar
}

// ScalarValue wraps a scalar.
func ScalarValue(s Scalar) Value { return Value{kind: KindScalar, scalar: s} }

// NestedValue wraps a nested record. A nil record is stored as an empty one.
func NestedValue(r *Record) Value {
	if r == nil {
		r = New()
	}
	return Value{kind: KindNested, nested: r}
}

// SequenceValue wraps a sequence of scalars.
func SequenceValue(items ...Scalar) Value {
	seq := make([]Scalar, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the scalar held by v. It is the zero (null) scalar for other kinds.
func (v Value) Scalar() Scalar { return v.scalar }

// Nested returns the nested record held by v, or nil.
func (v Value) Nested() *Record { return v.nested }

// Sequence returns the scalars held by v, or nil.
func (v Value) Sequence() []Scalar { return v.seq }

// Text renders v as a single tabular cell: scalars by their text, sequences
// joined with commas, nested records as their compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, s := range v.seq {
			parts[i] = s.text
		}
		return strings.Join(parts, ",")
	case KindNested:
		if v.nested.Len() == 0 {
			return ""
		}
		b, err := v.nested.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return v.scalar.text
}

// Equal reports whether v and o hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNested:
		return v.nested.Equal(o.nested)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if v.seq[i] != o.seq[i] {
				return false
			}
		}
		return true
	}
	return v.scalar == o.scalar
}

// clone returns a deep copy of v.
func (v Value) clone() Value {
	switch v.kind {
	case KindNested:
		return NestedValue(v.nested.Clone())
	case KindSequence:
		return SequenceValue(v.seq...)
	}
	return v
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNested:
		return v.nested.MarshalJSON()
	case KindSequence:
		buf := []byte{'['}
		for i, s := range v.seq {
			if i > 0 {
				buf = append(buf, ',')
			}
			b, err := s.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
		}
		return append(buf, ']'), nil
	}
	return v.scalar.MarshalJSON()
}
