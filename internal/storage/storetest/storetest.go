// Package storetest is a conformance suite run against every storage
// backend. Backends must agree on filter semantics, ordering, rounding and
// error mapping; a behavior pinned here is a behavior callers may rely on
// regardless of which engine is configured.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/storage"
)

func fptr(f float64) *float64 { return &f }

// seedRecords is a small fixed dataset: two states, three crops, one
// zero-yield record that must still count toward every aggregate.
func seedRecords(ts int64) []models.CropRecord {
	return []models.CropRecord{
		{FieldID: "f1", FieldName: "North Plot", State: "Punjab", District: "Ludhiana", CropType: "Rice", SoilType: "Alluvial", Season: "Kharif", CultivationYear: 2023, YieldPerHectare: 40, FieldSizeHectares: 2, Latitude: fptr(30.9), Longitude: fptr(75.8), SoilPH: fptr(6.5), DataSource: "csv_upload", UploadTimestamp: ts, CreatedAt: time.Now().UTC()},
		{FieldID: "f2", FieldName: "South Plot", State: "Punjab", District: "Patiala", CropType: "Rice", SoilType: "Alluvial", Season: "Kharif", CultivationYear: 2023, YieldPerHectare: 50, FieldSizeHectares: 3, DataSource: "csv_upload", UploadTimestamp: ts, CreatedAt: time.Now().UTC()},
		{FieldID: "f3", FieldName: "West Plot", State: "Punjab", District: "Ludhiana", CropType: "Wheat", SoilType: "Alluvial", Season: "Rabi", CultivationYear: 2023, YieldPerHectare: 35, FieldSizeHectares: 4, DataSource: "csv_upload", UploadTimestamp: ts, CreatedAt: time.Now().UTC()},
		{FieldID: "f4", FieldName: "Delta Plot", State: "Maharashtra", District: "Nagpur", CropType: "Cotton", SoilType: "Black", Season: "Kharif", CultivationYear: 2023, YieldPerHectare: 0, FieldSizeHectares: 5, DataSource: "csv_upload", UploadTimestamp: ts, CreatedAt: time.Now().UTC()},
	}
}

func seed(t *testing.T, s storage.Store, batchID string, ts int64) {
	t.Helper()
	ctx := context.Background()
	records := seedRecords(ts)
	n, err := s.InsertBatch(ctx, records, batchID)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != len(records) {
		t.Fatalf("InsertBatch persisted %d, want %d", n, len(records))
	}
	err = s.RecordBatchMetadata(ctx, models.UploadBatch{
		BatchID:          batchID,
		Filename:         "fields.csv",
		FileSize:         512,
		TotalRows:        len(records),
		ValidRows:        len(records),
		InvalidRows:      0,
		ProcessingStatus: models.StatusCompleted,
		UploadTimestamp:  ts,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordBatchMetadata: %v", err)
	}
}

// Run executes the suite. open must return an empty store; cleanup happens
// through t.Cleanup inside open.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("EmptyStatistics", func(t *testing.T) {
		s := open(t)
		stats, err := s.GetStatistics(context.Background())
		if err != nil {
			t.Fatalf("GetStatistics on empty store: %v", err)
		}
		if stats != (storage.Statistics{}) {
			t.Fatalf("empty store statistics = %+v, want zero value", stats)
		}
	})

	t.Run("InsertAndQuery", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		all, err := s.QueryRecords(ctx, storage.RecordFilter{}, 100, 0)
		if err != nil {
			t.Fatalf("QueryRecords: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("got %d records, want 4", len(all))
		}
		for _, r := range all {
			if r.BatchID != "batch-1" {
				t.Errorf("record %s has batch id %q, want batch-1", r.FieldID, r.BatchID)
			}
		}
	})

	t.Run("FiltersAreCaseInsensitiveSubstrings", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		cases := []struct {
			name   string
			filter storage.RecordFilter
			want   int
		}{
			{"crop exact", storage.RecordFilter{CropType: "Rice"}, 2},
			{"crop lowercase", storage.RecordFilter{CropType: "rice"}, 2},
			{"crop substring", storage.RecordFilter{CropType: "ric"}, 2},
			{"state mixed case", storage.RecordFilter{State: "punJAB"}, 3},
			{"district substring", storage.RecordFilter{District: "ludhi"}, 2},
			{"combined", storage.RecordFilter{State: "punjab", CropType: "wheat"}, 1},
			{"batch exact", storage.RecordFilter{BatchID: "batch-1"}, 4},
			{"batch id is not a substring match", storage.RecordFilter{BatchID: "batch"}, 0},
			{"no match", storage.RecordFilter{CropType: "mango"}, 0},
		}
		for _, tc := range cases {
			got, err := s.QueryRecords(ctx, tc.filter, 100, 0)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if len(got) != tc.want {
				t.Errorf("%s: got %d records, want %d", tc.name, len(got), tc.want)
			}
		}
	})

	t.Run("PaginationAndOrdering", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-old", 1600000000000)
		seed(t, s, "batch-new", 1700000000000)

		page, err := s.QueryRecords(ctx, storage.RecordFilter{}, 4, 0)
		if err != nil {
			t.Fatalf("QueryRecords: %v", err)
		}
		if len(page) != 4 {
			t.Fatalf("first page has %d records, want 4", len(page))
		}
		for _, r := range page {
			if r.BatchID != "batch-new" {
				t.Errorf("first page contains %q record, newest batch should sort first", r.BatchID)
			}
		}

		rest, err := s.QueryRecords(ctx, storage.RecordFilter{}, 100, 4)
		if err != nil {
			t.Fatalf("QueryRecords offset: %v", err)
		}
		if len(rest) != 4 {
			t.Fatalf("second page has %d records, want 4", len(rest))
		}
		for _, r := range rest {
			if r.BatchID != "batch-old" {
				t.Errorf("second page contains %q record, want batch-old", r.BatchID)
			}
		}
	})

	t.Run("RecordRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		got, err := s.QueryRecords(ctx, storage.RecordFilter{District: "Ludhiana", CropType: "Rice"}, 10, 0)
		if err != nil {
			t.Fatalf("QueryRecords: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d records, want 1", len(got))
		}
		r := got[0]
		if r.FieldName != "North Plot" || r.Season != "Kharif" || r.CultivationYear != 2023 {
			t.Errorf("round-tripped record mismatch: %+v", r)
		}
		if r.Latitude == nil || *r.Latitude != 30.9 {
			t.Errorf("latitude = %v, want 30.9", r.Latitude)
		}
		if r.SoilPH == nil || *r.SoilPH != 6.5 {
			t.Errorf("soil ph = %v, want 6.5", r.SoilPH)
		}
	})

	t.Run("MissingOptionalsStayNil", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		got, err := s.QueryRecords(ctx, storage.RecordFilter{District: "Patiala"}, 10, 0)
		if err != nil {
			t.Fatalf("QueryRecords: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d records, want 1", len(got))
		}
		if got[0].Latitude != nil || got[0].Longitude != nil || got[0].SoilPH != nil {
			t.Errorf("absent optional fields should stay nil, got %+v", got[0])
		}
	})

	t.Run("Statistics", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1600000000000)
		seed(t, s, "batch-2", 1700000000000)

		stats, err := s.GetStatistics(ctx)
		if err != nil {
			t.Fatalf("GetStatistics: %v", err)
		}
		if stats.TotalRecords != 8 {
			t.Errorf("total_records = %d, want 8", stats.TotalRecords)
		}
		if stats.UniqueCrops != 3 {
			t.Errorf("unique_crops = %d, want 3", stats.UniqueCrops)
		}
		if stats.UniqueStates != 2 {
			t.Errorf("unique_states = %d, want 2", stats.UniqueStates)
		}
		if stats.TotalUploads != 2 {
			t.Errorf("total_uploads = %d, want 2", stats.TotalUploads)
		}
		// (40+50+35+0)*2/8: the zero-yield record drags the mean down.
		if stats.AvgYield != 31.25 {
			t.Errorf("avg_yield = %v, want 31.25", stats.AvgYield)
		}
		if stats.MinYield != 0 {
			t.Errorf("min_yield = %v, want 0", stats.MinYield)
		}
		if stats.MaxYield != 50 {
			t.Errorf("max_yield = %v, want 50", stats.MaxYield)
		}
		if stats.TotalArea != 28 {
			t.Errorf("total_area = %v, want 28", stats.TotalArea)
		}
		if stats.FirstUpload != 1600000000000 || stats.LatestUpload != 1700000000000 {
			t.Errorf("upload span = [%d, %d], want [1600000000000, 1700000000000]", stats.FirstUpload, stats.LatestUpload)
		}
	})

	t.Run("YieldAnalysis", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		rows, err := s.YieldAnalysis(ctx, "", "")
		if err != nil {
			t.Fatalf("YieldAnalysis: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("got %d groups, want 3", len(rows))
		}
		top := rows[0]
		if top.State != "Punjab" || top.CropType != "Rice" {
			t.Fatalf("top group = (%s, %s), want (Punjab, Rice)", top.State, top.CropType)
		}
		if top.RecordCount != 2 || top.AvgYield != 45 || top.MinYield != 40 || top.MaxYield != 50 || top.TotalArea != 5 {
			t.Errorf("top group = %+v", top)
		}
		for i := 1; i < len(rows); i++ {
			if rows[i].AvgYield > rows[i-1].AvgYield {
				t.Errorf("groups not sorted by avg_yield descending: %v before %v", rows[i-1].AvgYield, rows[i].AvgYield)
			}
		}

		filtered, err := s.YieldAnalysis(ctx, "punjab", "rice")
		if err != nil {
			t.Fatalf("YieldAnalysis filtered: %v", err)
		}
		if len(filtered) != 1 || filtered[0].RecordCount != 2 {
			t.Errorf("filtered analysis = %+v, want single (Punjab, Rice) group of 2", filtered)
		}
	})

	t.Run("CropDistribution", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		dist, err := s.CropDistribution(ctx)
		if err != nil {
			t.Fatalf("CropDistribution: %v", err)
		}
		if len(dist) != 2 {
			t.Fatalf("got %d states, want 2", len(dist))
		}
		if dist[0].State != "Punjab" || dist[0].TotalRecords != 3 {
			t.Fatalf("first state = %+v, want Punjab with 3 records", dist[0])
		}
		if len(dist[0].Crops) != 2 {
			t.Fatalf("Punjab has %d crops, want 2", len(dist[0].Crops))
		}
		if dist[0].Crops[0].CropType != "Rice" || dist[0].Crops[0].RecordCount != 2 {
			t.Errorf("Punjab's largest crop = %+v, want Rice with 2 records", dist[0].Crops[0])
		}
		if dist[1].State != "Maharashtra" || dist[1].TotalRecords != 1 {
			t.Errorf("second state = %+v, want Maharashtra with 1 record", dist[1])
		}
	})

	t.Run("TopPerformers", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		perf, err := s.TopPerformers(ctx, 10)
		if err != nil {
			t.Fatalf("TopPerformers: %v", err)
		}
		if len(perf) != 3 {
			t.Fatalf("got %d crops, want 3", len(perf))
		}
		if perf[0].CropType != "Rice" || perf[0].AvgYield != 45 || perf[0].StatesCount != 1 {
			t.Errorf("top performer = %+v, want Rice avg 45 in 1 state", perf[0])
		}
		if perf[len(perf)-1].CropType != "Cotton" || perf[len(perf)-1].AvgYield != 0 {
			t.Errorf("last performer = %+v, want zero-yield Cotton", perf[len(perf)-1])
		}

		capped, err := s.TopPerformers(ctx, 1)
		if err != nil {
			t.Fatalf("TopPerformers limit 1: %v", err)
		}
		if len(capped) != 1 || capped[0].CropType != "Rice" {
			t.Errorf("limit 1 = %+v, want only Rice", capped)
		}
	})

	t.Run("BatchMetadata", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seed(t, s, "batch-1", 1700000000000)

		b, err := s.GetBatch(ctx, "batch-1")
		if err != nil {
			t.Fatalf("GetBatch: %v", err)
		}
		if b.Filename != "fields.csv" || b.TotalRows != 4 || b.ValidRows != 4 || b.ProcessingStatus != models.StatusCompleted {
			t.Errorf("batch = %+v", b)
		}

		_, err = s.GetBatch(ctx, "no-such-batch")
		if !errors.Is(err, storage.ErrBatchNotFound) {
			t.Errorf("GetBatch for unknown id returned %v, want ErrBatchNotFound", err)
		}
	})

	t.Run("InsertEmptyBatch", func(t *testing.T) {
		s := open(t)
		n, err := s.InsertBatch(context.Background(), nil, "batch-empty")
		if err != nil {
			t.Fatalf("InsertBatch(nil): %v", err)
		}
		if n != 0 {
			t.Errorf("persisted %d records from empty batch, want 0", n)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping on open store: %v", err)
		}
	})
}
