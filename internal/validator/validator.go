// Package validator checks canonical records against a permissive-but-bounded
// schema and enriches accepted rows with batch provenance.
package validator

import (
	"fmt"
	"strings"
	"time"

	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/normalizer"
)

// Provenance ties accepted records back to their originating batch.
type Provenance struct {
	BatchID         string
	DataSource      string
	UploadTimestamp int64 // epoch ms, shared by every row of the batch
}

// rangeRule bounds a numeric field when it is present. Fields are otherwise
// optional; heterogeneous sources rarely fill every column.
type rangeRule struct {
	key      string
	min, max float64
}

var rangeRules = []rangeRule{
	{normalizer.KeyLatitude, -90, 90},
	{normalizer.KeyLongitude, -180, 180},
	{normalizer.KeySoilPH, 0, 14},
}

// Amount fields must be non-negative when present.
var amountKeys = []string{
	normalizer.KeyYieldPerHectare,
	normalizer.KeyFieldSizeHectares,
}

// identifying fields: a record carrying none of these is unusable.
var identifyingKeys = []string{
	normalizer.KeyFieldName,
	normalizer.KeyState,
	normalizer.KeyDistrict,
	normalizer.KeyCropType,
}

// consumedKeys are lifted into CropRecord struct fields; everything else in
// the canonical record passes through via Extra.
var consumedKeys = map[string]struct{}{
	normalizer.KeyFieldID:           {},
	normalizer.KeyFieldName:         {},
	normalizer.KeyState:             {},
	normalizer.KeyDistrict:          {},
	normalizer.KeyCropType:          {},
	normalizer.KeySoilType:          {},
	normalizer.KeySeason:            {},
	normalizer.KeyCultivationYear:   {},
	normalizer.KeyYieldPerHectare:   {},
	normalizer.KeyFieldSizeHectares: {},
	normalizer.KeyLatitude:          {},
	normalizer.KeyLongitude:         {},
	normalizer.KeySoilPH:            {},
	normalizer.KeyDataSource:        {},
}

// Validate accepts a canonical record and returns it as a CropRecord enriched
// with provenance, or a rejection message naming the offending field(s).
// Rejecting one row never aborts the batch; the caller collects failures.
func Validate(canon map[string]any, prov Provenance) (*models.CropRecord, string) {
	if !hasIdentifyingField(canon) {
		return nil, "row has no identifying fields (field_name, state, district or crop_type)"
	}

	var offending []string
	for _, rule := range rangeRules {
		if v, ok := floatValue(canon, rule.key); ok && (v < rule.min || v > rule.max) {
			offending = append(offending, fmt.Sprintf("%s=%v outside [%v,%v]", rule.key, v, rule.min, rule.max))
		}
	}
	for _, key := range amountKeys {
		if v, ok := floatValue(canon, key); ok && v < 0 {
			offending = append(offending, fmt.Sprintf("%s=%v must be >= 0", key, v))
		}
	}
	if len(offending) > 0 {
		return nil, strings.Join(offending, "; ")
	}

	rec := &models.CropRecord{
		BatchID:         prov.BatchID,
		FieldName:       stringValue(canon, normalizer.KeyFieldName),
		State:           stringValue(canon, normalizer.KeyState),
		District:        stringValue(canon, normalizer.KeyDistrict),
		CropType:        stringValue(canon, normalizer.KeyCropType),
		SoilType:        stringValue(canon, normalizer.KeySoilType),
		Season:          stringValue(canon, normalizer.KeySeason),
		DataSource:      prov.DataSource,
		UploadTimestamp: prov.UploadTimestamp,
		CreatedAt:       time.Now().UTC(),
	}
	if src := stringValue(canon, normalizer.KeyDataSource); src != "" {
		rec.DataSource = src
	}
	if y, ok := canon[normalizer.KeyCultivationYear].(int); ok {
		rec.CultivationYear = y
	}
	// Missing numeric fields default to 0, not null, so aggregation stays
	// well-defined across both storage backends.
	if v, ok := floatValue(canon, normalizer.KeyYieldPerHectare); ok {
		rec.YieldPerHectare = v
	}
	if v, ok := floatValue(canon, normalizer.KeyFieldSizeHectares); ok {
		rec.FieldSizeHectares = v
	}
	if v, ok := floatValue(canon, normalizer.KeyLatitude); ok {
		rec.Latitude = &v
	}
	if v, ok := floatValue(canon, normalizer.KeyLongitude); ok {
		rec.Longitude = &v
	}
	if v, ok := floatValue(canon, normalizer.KeySoilPH); ok {
		rec.SoilPH = &v
	}

	if rec.FieldName == "" {
		rec.FieldName = synthesizeFieldName(rec.District, rec.CropType)
	}
	rec.FieldID = stringValue(canon, normalizer.KeyFieldID)
	if rec.FieldID == "" {
		rec.FieldID = synthesizeFieldID(rec.FieldName, rec.State, prov.UploadTimestamp)
	}

	for k, v := range canon {
		if _, ok := consumedKeys[k]; ok {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}

	return rec, ""
}

func hasIdentifyingField(canon map[string]any) bool {
	for _, key := range identifyingKeys {
		if stringValue(canon, key) != "" {
			return true
		}
	}
	return false
}

// synthesizeFieldName builds a display name from district and crop type,
// falling back to "Unknown" for whichever is absent.
func synthesizeFieldName(district, cropType string) string {
	if district == "" {
		district = "Unknown"
	}
	if cropType == "" {
		cropType = "Unknown"
	}
	return district + " " + cropType + " Field"
}

// synthesizeFieldID derives a stable identifier from name, state and the
// batch upload timestamp, with whitespace flattened to underscores.
func synthesizeFieldID(fieldName, state string, uploadTimestamp int64) string {
	id := fmt.Sprintf("%s_%s_%d", fieldName, state, uploadTimestamp)
	return strings.Join(strings.Fields(id), "_")
}

func stringValue(canon map[string]any, key string) string {
	if s, ok := canon[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatValue(canon map[string]any, key string) (float64, bool) {
	switch v := canon[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
