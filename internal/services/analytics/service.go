// Package analytics answers the aggregate questions over ingested records.
// The heavy lifting happens inside the storage backends; this layer owns
// parameter defaults and bounds so both backends are queried identically.
package analytics

import (
	"context"

	"crop-analytics-backend/internal/storage"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
)

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Statistics(ctx context.Context) (storage.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// YieldAnalysis groups records by (state, crop type). Either filter may be
// empty; non-empty filters match case-insensitive substrings.
func (s *Service) YieldAnalysis(ctx context.Context, state, cropType string) ([]storage.YieldAnalysisRow, error) {
	return s.store.YieldAnalysis(ctx, state, cropType)
}

func (s *Service) CropDistribution(ctx context.Context) ([]storage.StateDistribution, error) {
	return s.store.CropDistribution(ctx)
}

// TopPerformers ranks crops by average yield. limit <= 0 falls back to the
// default; oversized limits are clamped.
func (s *Service) TopPerformers(ctx context.Context, limit int) ([]storage.CropPerformance, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	return s.store.TopPerformers(ctx, limit)
}
