package parser

import (
	"github.com/xuri/excelize/v2"

	"crop-analytics-backend/internal/models"
)

// parseXLSX reads the first sheet of an XLSX workbook. The first row is the
// header; everything below is data.
func parseXLSX(path, filename string) ([]RawRow, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &models.FileFormatError{Filename: filename, Reason: "cannot open XLSX workbook: " + err.Error()}
	}
	defer x.Close()

	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, &models.FileFormatError{Filename: filename, Reason: "workbook has no sheets"}
	}
	rows, err := x.GetRows(sheets[0])
	if err != nil {
		return nil, &models.FileFormatError{Filename: filename, Reason: "cannot read sheet: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsFromTable(rows[0], rows[1:]), nil
}
