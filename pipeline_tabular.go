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
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nicholasgasior/fileconvert-go/internal/record"
)

// ExtraFieldsKey holds cells that appear beyond the header width of a row.
const ExtraFieldsKey = "__parsed_extra"

// table is a header row plus data rows, the common shape of CSV and
// spreadsheet sources.
type table struct {
	header []string
	rows   [][]string
}

func newTable(rows [][]string) *table {
	t := &table{header: []string{}}
	if len(rows) == 0 {
		return t
	}
	t.header = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		t.header[i] = strings.TrimSpace(h)
	}
	t.rows = rows[1:]
	return t
}

// fields returns the distinct header names in first-seen order and the names
// that occur more than once. A repeated name keeps the value of its last
// column.
func (t *table) fields() (names, duplicates []string) {
	seen := make(map[string]int, len(t.header))
	names = make([]string, 0, len(t.header))
	for _, h := range t.header {
		seen[h]++
		switch seen[h] {
		case 1:
			names = append(names, h)
		case 2:
			duplicates = append(duplicates, h)
		}
	}
	return names, duplicates
}

// readCSV parses delimited text. Rows may be ragged and blank lines are
// skipped, but quoting is strict so that broken input is reported.
func readCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// records turns each data row into a nested record: header-keyed cells are
// typed under policy, collected into a flat record and unflattened.
func (t *table) records(policy record.InferencePolicy, logger *slog.Logger) []*record.Record {
	out := make([]*record.Record, 0, len(t.rows))
	for i, row := range t.rows {
		flat := record.NewFlat()
		for j, h := range t.header {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			flat.Set(h, record.ScalarValue(record.InferScalar(cell, policy)))
		}
		if len(row) > len(t.header) {
			extra := make([]record.Scalar, 0, len(row)-len(t.header))
			for _, cell := range row[len(t.header):] {
				extra = append(extra, record.InferScalar(cell, policy))
			}
			flat.Set(ExtraFieldsKey, record.SequenceValue(extra...))
		}

		rec, collisions := record.UnflattenCollisions(flat)
		for _, c := range collisions {
			logger.Warn("field path collision", "row", i+1, "path", c.Path, "key", c.Key)
		}
		out = append(out, rec)
	}
	return out
}

type tabularEnvelope struct {
	RowCount int              `json:"rowCount"`
	Fields   []string         `json:"fields"`
	Data     []*record.Record `json:"data"`
}

// TabularJSONPipeline converts CSV and spreadsheet rows into nested JSON records.
type TabularJSONPipeline struct {
	policy record.InferencePolicy
}

// NewTabularJSONPipeline creates a new TabularJSONPipeline.
func NewTabularJSONPipeline(policy record.InferencePolicy) *TabularJSONPipeline {
	return &TabularJSONPipeline{policy: policy}
}

func (p *TabularJSONPipeline) Name() string { return "tabular-json" }

func (p *TabularJSONPipeline) Convert(_ context.Context, c *Conversion) (*Result, error) {
	rows, err := sourceRows(c)
	if err != nil {
		return nil, err
	}

	t := newTable(rows)
	fields, duplicates := t.fields()
	for _, d := range duplicates {
		c.Logger().Warn("duplicate header", "field", d)
	}
	data := t.records(p.policy, c.Logger())

	payload, err := json.MarshalIndent(tabularEnvelope{
		RowCount: len(data),
		Fields:   fields,
		Data:     data,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}

	return &Result{
		Payload:     append(payload, '\n'),
		ContentType: contentTypeJSON,
	}, nil
}

// sourceRows reads the raw rows of a tabular source.
func sourceRows(c *Conversion) ([][]string, error) {
	switch c.Source {
	case SourceXlsx:
		return readXLSX(c.Data)
	case SourceXls:
		return readXLS(c.Data)
	}
	rows, err := readCSV(c.Text())
	if err != nil {
		return nil, malformedInput("CSV", err)
	}
	return rows, nil
}

// SheetCSVPipeline writes the first worksheet of a workbook as CSV.
type SheetCSVPipeline struct{}

// NewSheetCSVPipeline creates a new SheetCSVPipeline.
func NewSheetCSVPipeline() *SheetCSVPipeline {
	return &SheetCSVPipeline{}
}

func (p *SheetCSVPipeline) Name() string { return "sheet-csv" }

func (p *SheetCSVPipeline) Convert(_ context.Context, c *Conversion) (*Result, error) {
	rows, err := sourceRows(c)
	if err != nil {
		return nil, err
	}
	payload, err := writeCSV(rows)
	if err != nil {
		return nil, err
	}
	return &Result{
		Payload:     payload,
		ContentType: contentTypeCSV,
	}, nil
}

func writeCSV(rows [][]string) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write CSV: %w", err)
	}
	return []byte(b.String()), nil
}
