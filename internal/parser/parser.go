// Package parser extracts header→value row maps from uploaded CSV and XLSX
// files. It knows nothing about the canonical schema; the normalizer owns
// header semantics.
package parser

import (
	"os"
	"path/filepath"
	"strings"

	"crop-analytics-backend/internal/models"
)

// RawRow is one data row keyed by its original header strings. Line is
// 1-based over data rows (the header is line 0 and never surfaces).
type RawRow struct {
	Line   int
	Values map[string]string
}

// SupportedExtension reports whether the upload's extension is accepted.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ParseFile reads every data row of the file at path. The original filename
// decides the format; path may be a temp file with an opaque name.
func ParseFile(path, filename string) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseCSV(f, filename)
	case ".xlsx":
		return parseXLSX(path, filename)
	}
	return nil, &models.FileFormatError{Filename: filename, Reason: "only .csv and .xlsx files are supported"}
}

// rowsFromTable converts a header row plus data rows into RawRows. Rows with
// fewer cells than headers are padded with empties; fully blank rows are
// kept so the batch accounting counts them (they fail validation as empty
// canonical records).
func rowsFromTable(headers []string, table [][]string) []RawRow {
	rows := make([]RawRow, 0, len(table))
	for i, cells := range table {
		values := make(map[string]string, len(headers))
		for j, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			if j < len(cells) {
				values[h] = cells[j]
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, RawRow{Line: i + 1, Values: values})
	}
	return rows
}
