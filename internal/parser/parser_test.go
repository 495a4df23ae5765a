package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSupportedExtension(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"data.csv", true},
		{"DATA.CSV", true},
		{"report.xlsx", true},
		{"report.xls", false},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, c := range cases {
		if got := SupportedExtension(c.name); got != c.want {
			t.Errorf("SupportedExtension(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestParseCSVBasic(t *testing.T) {
	csv := "crop,state,yield\nRice,Punjab,40\nWheat,Haryana,30\n"
	rows, err := parseCSV(strings.NewReader(csv), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Line != 1 || rows[1].Line != 2 {
		t.Errorf("line numbers wrong: %d, %d", rows[0].Line, rows[1].Line)
	}
	if rows[0].Values["crop"] != "Rice" || rows[1].Values["state"] != "Haryana" {
		t.Errorf("values wrong: %+v", rows)
	}
}

func TestParseCSVTabDelimited(t *testing.T) {
	tsv := "crop\tstate\nRice\tPunjab\n"
	rows, err := parseCSV(strings.NewReader(tsv), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Values["state"] != "Punjab" {
		t.Errorf("tab-delimited parse failed: %+v", rows)
	}
}

func TestParseCSVHeaderBOM(t *testing.T) {
	csv := "\xef\xbb\xbfcrop,state\nRice,Punjab\n"
	rows, err := parseCSV(strings.NewReader(csv), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rows[0].Values["crop"]; !ok {
		t.Errorf("BOM not stripped from first header: %+v", rows[0].Values)
	}
}

func TestParseCSVShortRow(t *testing.T) {
	csv := "crop,state,yield\nRice\n"
	rows, err := parseCSV(strings.NewReader(csv), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Values["crop"] != "Rice" || rows[0].Values["yield"] != "" {
		t.Errorf("short row not padded: %+v", rows[0].Values)
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	rows, err := parseCSV(strings.NewReader(""), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("empty file should yield zero rows, got %d", len(rows))
	}
}

func TestParseXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.xlsx")
	x := excelize.NewFile()
	sheet := x.GetSheetName(0)
	data := [][]any{
		{"crop", "state", "yield"},
		{"Rice", "Punjab", 40},
		{"Wheat", "Haryana", 30},
	}
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := x.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	x.Close()

	rows, err := ParseFile(path, "upload.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Values["crop"] != "Rice" || rows[1].Values["yield"] != "30" {
		t.Errorf("xlsx values wrong: %+v", rows)
	}
}

func TestParseFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(path, "data.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
