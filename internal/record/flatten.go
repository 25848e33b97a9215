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

import "strings"

// Separator joins the segments of a flat key.
const Separator = "."

// Flat is a record whose keys are dotted paths and whose values are leaves:
// scalars, sequences, or empty nested records.
type Flat struct {
	Record
}

// NewFlat returns an empty flat record.
func NewFlat() *Flat {
	return &Flat{Record: Record{values: make(map[string]Value)}}
}

// Collision describes a node that Unflatten overwrote because two flat keys
// disagreed about whether a path holds a leaf or a nested record.
type Collision struct {
	// Path is the dotted path of the overwritten node.
	Path string
	// Key is the flat key whose assignment won.
	Key string
}

// Flatten turns a nested record into a flat one. Keys are visited in insertion
// order, depth first, so the output order is deterministic.
func Flatten(r *Record) *Flat {
	out := NewFlat()
	flattenInto(out, "", false, r)
	return out
}

func flattenInto(out *Flat, prefix string, nested bool, r *Record) {
	r.Range(func(k string, v Value) bool {
		key := k
		if nested {
			key = prefix + Separator + k
		}
		if v.Kind() == KindNested && v.Nested().Len() > 0 {
			flattenInto(out, key, true, v.Nested())
			return true
		}
		out.Set(key, v.clone())
		return true
	})
}

// Unflatten rebuilds a nested record from a flat one. See UnflattenCollisions
// for the conflict policy.
func Unflatten(f *Flat) *Record {
	r, _ := UnflattenCollisions(f)
	return r
}

// UnflattenCollisions rebuilds a nested record and reports every conflict it
// resolved. Conflicts are last-write-wins in key order: a key that needs a
// nested record where a leaf already sits replaces the leaf, and a key that
// assigns a leaf where a non-empty record sits replaces the record. A replaced
// node keeps its position in its parent.
func UnflattenCollisions(f *Flat) (*Record, []Collision) {
	out := New()
	if f == nil {
		return out, nil
	}
	var collisions []Collision
	f.Range(func(key string, v Value) bool {
		segs := strings.Split(key, Separator)
		cur := out
		for i, seg := range segs[:len(segs)-1] {
			existing, ok := cur.Get(seg)
			if ok && existing.Kind() == KindNested {
				cur = existing.Nested()
				continue
			}
			if ok {
				collisions = append(collisions, Collision{
					Path: strings.Join(segs[:i+1], Separator),
					Key:  key,
				})
			}
			child := New()
			cur.Set(seg, NestedValue(child))
			cur = child
		}
		last := segs[len(segs)-1]
		if existing, ok := cur.Get(last); ok && existing.Kind() == KindNested && existing.Nested().Len() > 0 {
			collisions = append(collisions, Collision{Path: key, Key: key})
		}
		cur.Set(last, v.clone())
		return true
	})
	return out, collisions
}
