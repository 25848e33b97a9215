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
	"math"
	"regexp"
	"strconv"
	"strings"
)

// InferencePolicy controls how tabular cell text is typed.
type InferencePolicy uint8

const (
	// InferNumbers turns numeric-looking cells into numbers. Codes such as
	// "007" or phone numbers lose their formatting under this policy.
	InferNumbers InferencePolicy = iota
	// InferNone keeps every cell a string.
	InferNone
)

var reNumeric = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// InferScalar types a single cell under policy p.
func InferScalar(s string, p InferencePolicy) Scalar {
	if p == InferNumbers && reNumeric.MatchString(s) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return NumberScalar(FormatNumber(f))
		}
	}
	return StringScalar(s)
}

// FormatNumber renders f as the shortest JSON number literal that round-trips.
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'e', -1, 64)
}
