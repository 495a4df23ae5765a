// Package ingest coordinates one upload end to end: parse, normalize and
// validate every row, persist the survivors as a batch, and report honest
// counts back to the caller.
package ingest

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crop-analytics-backend/internal/cache"
	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/normalizer"
	"crop-analytics-backend/internal/parser"
	"crop-analytics-backend/internal/storage"
	"crop-analytics-backend/internal/validator"
)

type Service struct {
	store   storage.Store
	batches *cache.BatchCache
	workers int
}

func NewService(store storage.Store, batches *cache.BatchCache, workers int) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{store: store, batches: batches, workers: workers}
}

// rowResult keeps the original row index so output order is deterministic
// regardless of worker scheduling.
type rowResult struct {
	record  *models.CropRecord
	failure *models.ValidationError
}

// ProcessFile ingests the file at path. filename is the name the caller
// uploaded under (path may point at a temp file) and decides the format.
//
// Row rejection never aborts the batch: invalid rows are skipped, counted,
// and reported. A storage failure mid-insert keeps whatever was persisted
// and the returned counts reflect that. The only hard failures are an
// unreachable backend (checked before any parsing work) and an unreadable
// file.
func (s *Service) ProcessFile(ctx context.Context, path, filename string, fileSize int64) (*models.UploadSummary, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, err
	}

	rows, err := parser.ParseFile(path, filename)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	uploadTS := time.Now().UnixMilli()
	prov := validator.Provenance{
		BatchID:         batchID,
		DataSource:      "csv_upload",
		UploadTimestamp: uploadTS,
	}

	results := make([]rowResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			canon := normalizer.Normalize(row.Values)
			record, reason := validator.Validate(canon, prov)
			if record == nil {
				results[i] = rowResult{failure: &models.ValidationError{
					Row:     row.Line,
					Raw:     row.Values,
					Message: reason,
				}}
				return nil
			}
			results[i] = rowResult{record: record}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []models.CropRecord
	var failures []models.ValidationError
	for _, res := range results {
		switch {
		case res.record != nil:
			records = append(records, *res.record)
		case res.failure != nil:
			failures = append(failures, *res.failure)
		}
	}

	persisted := 0
	if len(records) > 0 {
		persisted, err = s.store.InsertBatch(ctx, records, batchID)
		if err != nil {
			// Partial persistence: keep what landed and count the rest
			// as invalid so the totals stay truthful.
			log.Printf("batch %s: persisted %d of %d records: %v", batchID, persisted, len(records), err)
		}
	}

	status := models.StatusCompleted
	if persisted == 0 {
		status = models.StatusFailed
	}
	batch := models.UploadBatch{
		BatchID:          batchID,
		Filename:         filename,
		FileSize:         fileSize,
		TotalRows:        len(rows),
		ValidRows:        persisted,
		InvalidRows:      len(rows) - persisted,
		ProcessingStatus: status,
		UploadTimestamp:  uploadTS,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.RecordBatchMetadata(ctx, batch); err != nil {
		log.Printf("batch %s: failed to record metadata: %v", batchID, err)
	} else if s.batches != nil {
		s.batches.Add(batch)
	}

	reported := failures
	if len(reported) > models.MaxReportedErrors {
		reported = reported[:models.MaxReportedErrors]
	}
	if reported == nil {
		reported = []models.ValidationError{}
	}

	return &models.UploadSummary{
		BatchID:     batchID,
		Filename:    filename,
		TotalRows:   len(rows),
		ValidRows:   persisted,
		InvalidRows: len(rows) - persisted,
		Summary:     fmt.Sprintf("Processed %d rows: %d valid, %d invalid", len(rows), persisted, len(rows)-persisted),
		Errors:      reported,
	}, nil
}
