package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"crop-analytics-backend/internal/models"
)

const utf8BOM = "\xef\xbb\xbf"

// sniffDelimiter inspects the first line for tab or semicolon separated
// exports; comma wins otherwise.
func sniffDelimiter(sample string) rune {
	switch {
	case strings.Contains(sample, "\t"):
		return '\t'
	case strings.Contains(sample, ";") && !strings.Contains(sample, ","):
		return ';'
	}
	return ','
}

func parseCSV(r io.Reader, filename string) ([]RawRow, error) {
	br := bufio.NewReader(r)
	sample, _ := br.Peek(1024)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(string(sample))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil // empty file: zero rows, batch fails downstream
	}
	if err != nil {
		return nil, &models.FileFormatError{Filename: filename, Reason: "cannot read CSV header: " + err.Error()}
	}
	headers = stripHeaderBOM(headers)

	var table [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed row: keep an empty placeholder so counts stay honest.
			table = append(table, nil)
			continue
		}
		table = append(table, record)
	}
	return rowsFromTable(headers, table), nil
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}
