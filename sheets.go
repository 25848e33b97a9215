package fileconvert

import (
	"bytes"
	"fmt"
	"os"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX returns the rows of the first non-empty worksheet.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, malformedInput("XLSX", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, malformedInput("XLSX", fmt.Errorf("read sheet %q: %w", sheet, err))
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// readXLS returns the rows of the first non-empty sheet of a legacy workbook.
func readXLS(data []byte) (rows [][]string, err error) {
	// extrame/xls requires a file path, so we need to write to a temp file
	tmpFile, err := os.CreateTemp("", "fileconvert-*.xls")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmpFile.Close()

	// The BIFF reader panics on some truncated streams.
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, malformedInput("XLS", fmt.Errorf("corrupt workbook: %v", rec))
		}
	}()

	wb, err := xls.Open(tmpPath, "utf-8")
	if err != nil {
		return nil, malformedInput("XLS", err)
	}

	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var out [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for col := 0; col < row.LastCol(); col++ {
				cells = append(cells, row.Col(col))
			}
			out = append(out, cells)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}
