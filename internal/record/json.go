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

package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON parses a JSON document holding either one object or an array of
// objects, preserving key order. A single object is returned as a one-element slice.
//
// Arrays whose elements are all scalars become sequences. Any other array
// (objects or arrays inside) is kept as a string scalar holding its compact JSON.
func DecodeJSON(data []byte) ([]*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty JSON document")
		}
		return nil, err
	}

	var records []*Record
	switch tok {
	case json.Delim('{'):
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
			rec, err := decodeObject(dec)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("top-level value must be an object or an array of objects")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	if records == nil {
		records = []*Record{}
	}
	return records, nil
}

// decodeObject reads the members of an object whose opening brace was consumed.
func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid object key %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		rec.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return NestedValue(rec), nil
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return ScalarValue(StringScalar(t)), nil
	case json.Number:
		return ScalarValue(NumberScalar(t.String())), nil
	case bool:
		return ScalarValue(BoolScalar(t)), nil
	case nil:
		return ScalarValue(NullScalar()), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// decodeArray reads the elements of an array whose opening bracket was consumed.
func decodeArray(dec *json.Decoder) (Value, error) {
	var elems []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Value{}, err
		}
		elems = append(elems, raw)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}

	scalars := make([]Scalar, 0, len(elems))
	for _, raw := range elems {
		s, ok := rawScalar(raw)
		if !ok {
			return ScalarValue(StringScalar(compactArray(elems))), nil
		}
		scalars = append(scalars, s)
	}
	return SequenceValue(scalars...), nil
}

func rawScalar(raw json.RawMessage) (Scalar, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return Scalar{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Scalar{}, false
	}
	switch t := x.(type) {
	case string:
		return StringScalar(t), true
	case json.Number:
		return NumberScalar(t.String()), true
	case bool:
		return BoolScalar(t), true
	case nil:
		return NullScalar(), true
	}
	return Scalar{}, false
}

func compactArray(elems []json.RawMessage) string {
	var src bytes.Buffer
	src.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			src.WriteByte(',')
		}
		src.Write(e)
	}
	src.WriteByte(']')

	var dst bytes.Buffer
	if err := json.Compact(&dst, src.Bytes()); err != nil {
		return src.String()
	}
	return dst.String()
}
