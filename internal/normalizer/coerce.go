package normalizer

import (
	"strconv"
	"strings"
	"time"
)

// ParseNumber parses a float after stripping grouping separators. Indian
// lakh/crore grouping ("1,50,000") and western grouping ("150,000") both
// reduce to the same digits once commas and spaces are removed.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Date layouts tried in order, after '-' separators are unified to '/'.
// DD/MM/YYYY wins over YYYY/MM/DD wins over DD/MM/YY.
var slashLayouts = []string{
	"02/01/2006",
	"2006/01/02",
	"02/01/06",
}

// Fallback layouts tried on the original string.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

// ParseDate coerces the date conventions seen in farmer spreadsheets.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	unified := strings.ReplaceAll(s, "-", "/")
	for _, layout := range slashLayouts {
		if t, err := time.Parse(layout, unified); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
