// Package normalizer maps arbitrary spreadsheet rows into canonical records.
// Header names, numeric conventions and regional crop names vary per data
// source; everything downstream sees one vocabulary.
package normalizer

import (
	"strings"
)

// Canonical field keys produced by Normalize. Unrecognized headers keep
// their normalized form so later schema additions don't drop data.
const (
	KeyFieldID           = "field_id"
	KeyFieldName         = "field_name"
	KeyState             = "state"
	KeyDistrict          = "district"
	KeyCropType          = "crop_type"
	KeySoilType          = "soil_type"
	KeySeason            = "season"
	KeyCultivationYear   = "cultivation_year"
	KeyYieldPerHectare   = "yield_per_hectare"
	KeyFieldSizeHectares = "field_size_hectares"
	KeyLatitude          = "latitude"
	KeyLongitude         = "longitude"
	KeySoilPH            = "soil_ph"
	KeySowingDate        = "sowing_date"
	KeyHarvestDate       = "harvest_date"
	KeyDataSource        = "data_source"
)

// headerSynonyms maps normalized header variants onto canonical keys.
// Keys already in canonical form are absent; they map to themselves.
var headerSynonyms = map[string]string{
	"area":                      KeyFieldSizeHectares,
	"size":                      KeyFieldSizeHectares,
	"hectares":                  KeyFieldSizeHectares,
	"area_hectares":             KeyFieldSizeHectares,
	"area_in_hectares":          KeyFieldSizeHectares,
	"area_ha":                   KeyFieldSizeHectares,
	"field_size":                KeyFieldSizeHectares,
	"field_area":                KeyFieldSizeHectares,
	"plot_size":                 KeyFieldSizeHectares,
	"land_area":                 KeyFieldSizeHectares,
	"productivity":              KeyYieldPerHectare,
	"yield":                     KeyYieldPerHectare,
	"yield_per_ha":              KeyYieldPerHectare,
	"yield_quintal":             KeyYieldPerHectare,
	"yield_quintal_ha":          KeyYieldPerHectare,
	"yield_quintal_per_hectare": KeyYieldPerHectare,
	"upj":                       KeyYieldPerHectare,
	"crop":                      KeyCropType,
	"crop_name":                 KeyCropType,
	"fasal":                     KeyCropType,
	"farm_name":                 KeyFieldName,
	"plot_name":                 KeyFieldName,
	"khet":                      KeyFieldName,
	"region":                    KeyState,
	"rajya":                     KeyState,
	"dist":                      KeyDistrict,
	"zila":                      KeyDistrict,
	"lat":                       KeyLatitude,
	"lon":                       KeyLongitude,
	"lng":                       KeyLongitude,
	"long":                      KeyLongitude,
	"ph":                        KeySoilPH,
	"ph_value":                  KeySoilPH,
	"soil":                      KeySoilType,
	"soil_name":                 KeySoilType,
	"year":                      KeyCultivationYear,
	"crop_year":                 KeyCultivationYear,
	"sowing":                    KeySowingDate,
	"sowing_dt":                 KeySowingDate,
	"planting_date":             KeySowingDate,
	"harvest":                   KeyHarvestDate,
	"harvest_dt":                KeyHarvestDate,
	"harvesting_date":           KeyHarvestDate,
	"source":                    KeyDataSource,
}

// numericKeys are coerced with ParseNumber; unparsable values are omitted.
var numericKeys = map[string]struct{}{
	KeyYieldPerHectare:   {},
	KeyFieldSizeHectares: {},
	KeyLatitude:          {},
	KeyLongitude:         {},
	KeySoilPH:            {},
	KeyCultivationYear:   {},
}

// dateKeys are coerced with ParseDate; unparsable values are omitted.
var dateKeys = map[string]struct{}{
	KeySowingDate:  {},
	KeyHarvestDate: {},
}

// NormalizeHeader lower-cases a header, collapses runs of non-alphanumerics
// into single underscores and trims edge underscores. Idempotent.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	b.Grow(len(h))
	lastUnderscore := false
	for _, r := range h {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// CanonicalKey resolves a raw header to its canonical field key.
func CanonicalKey(h string) string {
	n := NormalizeHeader(h)
	if canon, ok := headerSynonyms[n]; ok {
		return canon
	}
	return n
}

// Normalize converts one raw parsed row into a canonical record. Recognized
// keys carry typed values (float64, int, time.Time, string); unrecognized
// keys pass through with their trimmed string value. Missing or empty cells
// are omitted, never defaulted, so the validator can apply per-field
// optionality. An entirely empty row yields an empty record.
func Normalize(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for header, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := CanonicalKey(header)
		if key == "" {
			continue
		}

		if _, ok := numericKeys[key]; ok {
			n, ok := ParseNumber(value)
			if !ok {
				continue
			}
			if key == KeyCultivationYear {
				out[key] = int(n)
			} else {
				out[key] = n
			}
			continue
		}

		if _, ok := dateKeys[key]; ok {
			t, ok := ParseDate(value)
			if !ok {
				continue
			}
			out[key] = t
			continue
		}

		switch key {
		case KeyCropType:
			out[key] = CanonicalCrop(value)
		case KeySoilType:
			out[key] = CanonicalSoil(value)
		default:
			out[key] = value
		}
	}
	return out
}
