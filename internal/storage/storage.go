// Package storage defines the contract shared by the interchangeable
// persistence backends. Both implementations emit byte-identical field names
// so the analytics engine and query gateway stay backend-agnostic; backend
// row identifiers never cross this boundary.
package storage

import (
	"context"
	"errors"
	"math"

	"crop-analytics-backend/internal/models"
)

// ErrBatchNotFound is returned by GetBatch for unknown batch ids.
var ErrBatchNotFound = errors.New("batch not found")

// RecordFilter narrows record queries. Empty fields match everything;
// string matches are case-insensitive substring matches.
type RecordFilter struct {
	CropType string
	State    string
	District string
	BatchID  string
}

// Statistics is the dataset-wide aggregate. Numeric fields are rounded to
// two decimals; an empty dataset yields the zero value, never an error.
type Statistics struct {
	TotalRecords int64   `json:"total_records"`
	UniqueCrops  int64   `json:"unique_crops"`
	UniqueStates int64   `json:"unique_states"`
	TotalUploads int64   `json:"total_uploads"`
	AvgYield     float64 `json:"avg_yield"`
	MinYield     float64 `json:"min_yield"`
	MaxYield     float64 `json:"max_yield"`
	TotalArea    float64 `json:"total_area"`
	FirstUpload  int64   `json:"first_upload"`
	LatestUpload int64   `json:"latest_upload"`
}

// YieldAnalysisRow is one (state, crop_type) group.
type YieldAnalysisRow struct {
	State       string  `json:"state"`
	CropType    string  `json:"crop_type"`
	RecordCount int64   `json:"record_count"`
	AvgYield    float64 `json:"avg_yield"`
	MinYield    float64 `json:"min_yield"`
	MaxYield    float64 `json:"max_yield"`
	TotalArea   float64 `json:"total_area"`
}

// CropShare is one crop's slice of a state's records.
type CropShare struct {
	CropType    string  `json:"crop_type"`
	RecordCount int64   `json:"record_count"`
	TotalArea   float64 `json:"total_area"`
	AvgYield    float64 `json:"avg_yield"`
}

// StateDistribution groups a state's records by crop.
type StateDistribution struct {
	State        string      `json:"state"`
	TotalRecords int64       `json:"total_records"`
	Crops        []CropShare `json:"crops"`
}

// CropPerformance ranks one crop across all states.
type CropPerformance struct {
	CropType     string  `json:"crop_type"`
	AvgYield     float64 `json:"avg_yield"`
	TotalRecords int64   `json:"total_records"`
	TotalArea    float64 `json:"total_area"`
	StatesCount  int64   `json:"states_count"`
}

// Store is implemented by both backends with identical semantics. All
// aggregations count zero-yield records as valid zero contributions.
type Store interface {
	// InsertBatch persists validated records, attempting each record
	// independently so one malformed record cannot block the rest. Returns
	// the count actually persisted.
	InsertBatch(ctx context.Context, records []models.CropRecord, batchID string) (int, error)

	// RecordBatchMetadata persists the UploadBatch.
	RecordBatchMetadata(ctx context.Context, batch models.UploadBatch) error

	// GetBatch fetches batch metadata; ErrBatchNotFound for unknown ids.
	GetBatch(ctx context.Context, batchID string) (*models.UploadBatch, error)

	// QueryRecords returns records matching the filter, sorted by recency
	// descending, paginated.
	QueryRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]models.CropRecord, error)

	// GetStatistics computes the dataset-wide aggregate.
	GetStatistics(ctx context.Context) (Statistics, error)

	// YieldAnalysis groups by (state, crop_type) with optional
	// case-insensitive substring filters, sorted by avg_yield descending.
	YieldAnalysis(ctx context.Context, state, cropType string) ([]YieldAnalysisRow, error)

	// CropDistribution groups by state then crop, states sorted by
	// total_records descending.
	CropDistribution(ctx context.Context) ([]StateDistribution, error)

	// TopPerformers groups by crop_type across all states, sorted by
	// avg_yield descending, capped at limit.
	TopPerformers(ctx context.Context, limit int) ([]CropPerformance, error)

	// Ping verifies the backend is reachable; the coordinator fails fast
	// on error before parsing begins.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close(ctx context.Context) error
}

// Round2 rounds to two decimals. Both backends round through this helper so
// aggregate output is bit-identical regardless of engine.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
