package fileconvert

import (
	"context"

	"github.com/nicholasgasior/fileconvert-go/internal/record"
)

// HierarchicalCSVPipeline flattens JSON records into CSV rows.
type HierarchicalCSVPipeline struct{}

// NewHierarchicalCSVPipeline creates a new HierarchicalCSVPipeline.
func NewHierarchicalCSVPipeline() *HierarchicalCSVPipeline {
	return &HierarchicalCSVPipeline{}
}

func (p *HierarchicalCSVPipeline) Name() string { return "hierarchical-csv" }

func (p *HierarchicalCSVPipeline) Convert(_ context.Context, c *Conversion) (*Result, error) {
	recs, err := record.DecodeJSON([]byte(c.Text()))
	if err != nil {
		return nil, malformedInput("JSON", err)
	}

	payload, err := writeCSV(flatRows(recs))
	if err != nil {
		return nil, err
	}
	return &Result{
		Payload:     payload,
		ContentType: contentTypeCSV,
	}, nil
}

// flatRows flattens recs into a header row followed by one row per record.
// The header is the union of flattened keys in first-seen order; missing
// cells are empty.
func flatRows(recs []*record.Record) [][]string {
	flats := make([]*record.Flat, len(recs))
	var header []string
	seen := make(map[string]bool)
	for i, r := range recs {
		flats[i] = record.Flatten(r)
		for _, k := range flats[i].Keys() {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	if len(header) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(flats)+1)
	rows = append(rows, header)
	for _, f := range flats {
		row := make([]string, len(header))
		for j, k := range header {
			if v, ok := f.Get(k); ok {
				row[j] = v.Text()
			}
		}
		rows = append(rows, row)
	}
	return rows
}
