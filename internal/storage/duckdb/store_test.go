package duckdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/storage"
	"crop-analytics-backend/internal/storage/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open("") // in-memory database
		if err != nil {
			t.Fatalf("open in-memory store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close(t.Context()) })
		return s
	})
}

func TestInsertBatchSpansChunks(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(t.Context()) })
	ctx := context.Background()

	total := insertChunkSize*2 + 37
	records := make([]models.CropRecord, total)
	for i := range records {
		records[i] = models.CropRecord{
			FieldID:         fmt.Sprintf("f%d", i),
			FieldName:       "Plot",
			State:           "Punjab",
			District:        "Ludhiana",
			CropType:        "Rice",
			YieldPerHectare: 40,
			UploadTimestamp: 1700000000000,
			CreatedAt:       time.Now().UTC(),
		}
	}

	n, err := s.InsertBatch(ctx, records, "batch-big")
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != total {
		t.Fatalf("persisted %d records, want %d", n, total)
	}

	stats, err := s.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalRecords != int64(total) {
		t.Errorf("total_records = %d, want %d", stats.TotalRecords, total)
	}
}
