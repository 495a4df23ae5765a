package normalizer

import (
	"testing"
	"time"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Yield Per Hectare", "yield_per_hectare"},
		{"  Field--Size (Hectares) ", "field_size_hectares"},
		{"CROP_TYPE", "crop_type"},
		{"state", "state"},
		{"___district___", "district"},
		{"Soil pH", "soil_ph"},
		{"", ""},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := NormalizeHeader(c.in); got != c.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeHeaderIdempotent(t *testing.T) {
	headers := []string{"Field Name", "Yield (q/ha)", "soil_ph", "District "}
	for _, h := range headers {
		once := NormalizeHeader(h)
		twice := NormalizeHeader(once)
		if once != twice {
			t.Errorf("NormalizeHeader not idempotent for %q: %q then %q", h, once, twice)
		}
	}
}

func TestCanonicalKeySynonyms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Area", "field_size_hectares"},
		{"Size", "field_size_hectares"},
		{"Hectares", "field_size_hectares"},
		{"Productivity", "yield_per_hectare"},
		{"Yield", "yield_per_hectare"},
		{"Crop", "crop_type"},
		{"Dist", "district"},
		{"pH", "soil_ph"},
		{"unknown_column", "unknown_column"},
	}
	for _, c := range cases {
		if got := CanonicalKey(c.in); got != c.want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseNumberGrouping(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,50,000", 150000, true},
		{"150,000", 150000, true},
		{"1 500", 1500, true},
		{"42.5", 42.5, true},
		{"-3.2", -3.2, true},
		{"abc", 0, false},
		{"", 0, false},
		{"12,34,567.89", 1234567.89, true},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseNumber(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/06/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"15-06-2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024/06/15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"15/06/24", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"2 Jan 2023", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		if ok != c.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && !got.Equal(c.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCanonicalCrop(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"paddy", "Rice"},
		{"Dhan", "Rice"},
		{"Rice", "Rice"},
		{"GEHU", "Wheat"},
		{"corn", "Maize"},
		{"Dragonfruit", "Dragonfruit"}, // unknown passes through
		{"  kapas  ", "Cotton"},
	}
	for _, c := range cases {
		if got := CanonicalCrop(c.in); got != c.want {
			t.Errorf("CanonicalCrop(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	raw := map[string]string{
		"Crop":            "dhan",
		"State":           "Punjab",
		"Yield":           "1,50,000",
		"Area (hectares)": "2.5",
		"Sowing Date":     "01/07/2024",
		"custom_tag":      "monsoon-trial",
		"Harvest":         "garbage-date",
		"District":        "",
	}
	got := Normalize(raw)

	if got[KeyCropType] != "Rice" {
		t.Errorf("crop_type = %v, want Rice", got[KeyCropType])
	}
	if got[KeyState] != "Punjab" {
		t.Errorf("state = %v, want Punjab", got[KeyState])
	}
	if got[KeyYieldPerHectare] != 150000.0 {
		t.Errorf("yield_per_hectare = %v, want 150000", got[KeyYieldPerHectare])
	}
	if got[KeyFieldSizeHectares] != 2.5 {
		t.Errorf("field_size_hectares = %v, want 2.5", got[KeyFieldSizeHectares])
	}
	if _, ok := got[KeySowingDate].(time.Time); !ok {
		t.Errorf("sowing_date not coerced to time.Time: %v", got[KeySowingDate])
	}
	if got["custom_tag"] != "monsoon-trial" {
		t.Errorf("unrecognized key not passed through: %v", got["custom_tag"])
	}
	// Unparsable date is omitted, not a rejection.
	if _, ok := got[KeyHarvestDate]; ok {
		t.Errorf("unparsable harvest date should be omitted, got %v", got[KeyHarvestDate])
	}
	// Empty cell is omitted.
	if _, ok := got[KeyDistrict]; ok {
		t.Errorf("empty district should be omitted")
	}
}

func TestNormalizeEmptyRow(t *testing.T) {
	got := Normalize(map[string]string{"Crop": "", "State": "  "})
	if len(got) != 0 {
		t.Errorf("empty row should normalize to empty record, got %v", got)
	}
}
