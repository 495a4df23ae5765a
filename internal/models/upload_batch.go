package models

import "time"

// Processing status values for an UploadBatch.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// UploadBatch is one upload event. Created once alongside its records and
// never mutated afterward. ValidRows + InvalidRows always equals TotalRows,
// and the status is "failed" exactly when ValidRows is zero.
type UploadBatch struct {
	BatchID          string    `json:"batch_id" bson:"batch_id"`
	Filename         string    `json:"filename" bson:"filename"`
	FileSize         int64     `json:"file_size" bson:"file_size"`
	TotalRows        int       `json:"total_rows" bson:"total_rows"`
	ValidRows        int       `json:"valid_rows" bson:"valid_rows"`
	InvalidRows      int       `json:"invalid_rows" bson:"invalid_rows"`
	ProcessingStatus string    `json:"processing_status" bson:"processing_status"`
	UploadTimestamp  int64     `json:"upload_timestamp" bson:"upload_timestamp"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// UploadSummary is the definitive per-upload result returned to the caller.
type UploadSummary struct {
	BatchID     string            `json:"batchId"`
	Filename    string            `json:"filename"`
	TotalRows   int               `json:"totalRows"`
	ValidRows   int               `json:"validRows"`
	InvalidRows int               `json:"invalidRows"`
	Summary     string            `json:"summary"`
	Errors      []ValidationError `json:"errors"`
}
