// Package duckdb implements the storage contract on an embedded DuckDB
// database. Analytics run as SQL GROUP BY queries inside the engine.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/storage"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS crop_records (
	upload_batch_id     VARCHAR NOT NULL,
	field_id            VARCHAR,
	field_name          VARCHAR,
	state               VARCHAR,
	district            VARCHAR,
	crop_type           VARCHAR,
	soil_type           VARCHAR,
	season              VARCHAR,
	cultivation_year    INTEGER,
	yield_per_hectare   DOUBLE NOT NULL DEFAULT 0,
	field_size_hectares DOUBLE NOT NULL DEFAULT 0,
	latitude            DOUBLE,
	longitude           DOUBLE,
	soil_ph             DOUBLE,
	data_source         VARCHAR,
	upload_timestamp    BIGINT,
	created_at          TIMESTAMP,
	extra               VARCHAR
);
CREATE TABLE IF NOT EXISTS upload_batches (
	batch_id          VARCHAR PRIMARY KEY,
	filename          VARCHAR,
	file_size         BIGINT,
	total_rows        INTEGER,
	valid_rows        INTEGER,
	invalid_rows      INTEGER,
	processing_status VARCHAR,
	upload_timestamp  BIGINT,
	created_at        TIMESTAMP
);
`

const recordColumns = `upload_batch_id, field_id, field_name, state, district, crop_type,
	soil_type, season, cultivation_year, yield_per_hectare, field_size_hectares,
	latitude, longitude, soil_ph, data_source, upload_timestamp, created_at, extra`

const recordColumnCount = 18

// insertChunkSize bounds rows per bulk INSERT so a large upload never
// becomes one enormous statement.
const insertChunkSize = 500

// Store is the embedded analytical backend.
type Store struct {
	db *sql.DB
}

// Open connects to the DuckDB file at path (empty path keeps the database
// in memory) and bootstraps the schema idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap duckdb schema: %w", err)
	}
	// One writer connection; DuckDB serializes writes itself, this keeps
	// the pool from piling up concurrent inserts.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &models.StorageUnavailableError{Backend: "duckdb", Err: err}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

func recordArgs(rec *models.CropRecord) ([]any, error) {
	var extra any
	if len(rec.Extra) > 0 {
		b, err := json.Marshal(rec.Extra)
		if err != nil {
			return nil, fmt.Errorf("marshal extra: %w", err)
		}
		extra = string(b)
	}
	return []any{
		rec.BatchID, rec.FieldID, rec.FieldName, rec.State, rec.District, rec.CropType,
		rec.SoilType, rec.Season, rec.CultivationYear, rec.YieldPerHectare, rec.FieldSizeHectares,
		rec.Latitude, rec.Longitude, rec.SoilPH, rec.DataSource, rec.UploadTimestamp, rec.CreatedAt, extra,
	}, nil
}

// InsertBatch writes records in chunked multi-row INSERTs. A chunk that
// fails as a whole is retried record by record, so a single bad record
// cannot block the rest.
func (s *Store) InsertBatch(ctx context.Context, records []models.CropRecord, batchID string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		records[i].BatchID = batchID
	}

	persisted := 0
	var lastErr error
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}
		n, err := s.insertChunk(ctx, records[start:end], batchID, start)
		persisted += n
		if err != nil {
			lastErr = err
		}
	}
	if persisted < len(records) {
		return persisted, &models.PartialPersistenceError{Attempted: len(records), Persisted: persisted, Err: lastErr}
	}
	return persisted, nil
}

func (s *Store) insertChunk(ctx context.Context, chunk []models.CropRecord, batchID string, offset int) (int, error) {
	one := "(" + strings.TrimSuffix(strings.Repeat("?,", recordColumnCount), ",") + ")"

	placeholders := make([]string, 0, len(chunk))
	args := make([]any, 0, len(chunk)*recordColumnCount)
	bulkOK := true
	for i := range chunk {
		a, err := recordArgs(&chunk[i])
		if err != nil {
			bulkOK = false
			break
		}
		placeholders = append(placeholders, one)
		args = append(args, a...)
	}

	if bulkOK {
		query := fmt.Sprintf("INSERT INTO crop_records (%s) VALUES %s", recordColumns, strings.Join(placeholders, ","))
		if _, err := s.db.ExecContext(ctx, query, args...); err == nil {
			return len(chunk), nil
		}
	}

	// Chunk failed: retry each record independently.
	insertOne := fmt.Sprintf("INSERT INTO crop_records (%s) VALUES %s", recordColumns, one)
	persisted := 0
	var lastErr error
	for i := range chunk {
		a, err := recordArgs(&chunk[i])
		if err != nil {
			lastErr = err
			log.Printf("duckdb: skipping record %d of batch %s: %v", offset+i, batchID, err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, insertOne, a...); err != nil {
			lastErr = err
			log.Printf("duckdb: insert failed for record %d of batch %s: %v", offset+i, batchID, err)
			continue
		}
		persisted++
	}
	if persisted < len(chunk) {
		return persisted, lastErr
	}
	return persisted, nil
}

func (s *Store) RecordBatchMetadata(ctx context.Context, batch models.UploadBatch) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO upload_batches
		(batch_id, filename, file_size, total_rows, valid_rows, invalid_rows, processing_status, upload_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.BatchID, batch.Filename, batch.FileSize, batch.TotalRows, batch.ValidRows,
		batch.InvalidRows, batch.ProcessingStatus, batch.UploadTimestamp, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("record batch metadata: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, batchID string) (*models.UploadBatch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT batch_id, filename, file_size, total_rows,
		valid_rows, invalid_rows, processing_status, upload_timestamp, created_at
		FROM upload_batches WHERE batch_id = ?`, batchID)
	var b models.UploadBatch
	err := row.Scan(&b.BatchID, &b.Filename, &b.FileSize, &b.TotalRows, &b.ValidRows,
		&b.InvalidRows, &b.ProcessingStatus, &b.UploadTimestamp, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) QueryRecords(ctx context.Context, filter storage.RecordFilter, limit, offset int) ([]models.CropRecord, error) {
	var conds []string
	var args []any
	addLike := func(col, val string) {
		if val != "" {
			conds = append(conds, col+" ILIKE '%' || ? || '%'")
			args = append(args, val)
		}
	}
	addLike("crop_type", filter.CropType)
	addLike("state", filter.State)
	addLike("district", filter.District)
	if filter.BatchID != "" {
		conds = append(conds, "upload_batch_id = ?")
		args = append(args, filter.BatchID)
	}

	query := "SELECT " + recordColumns + " FROM crop_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY upload_timestamp DESC, created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CropRecord
	for rows.Next() {
		var rec models.CropRecord
		var lat, lon, ph sql.NullFloat64
		var extra sql.NullString
		var created time.Time
		err := rows.Scan(&rec.BatchID, &rec.FieldID, &rec.FieldName, &rec.State, &rec.District,
			&rec.CropType, &rec.SoilType, &rec.Season, &rec.CultivationYear, &rec.YieldPerHectare,
			&rec.FieldSizeHectares, &lat, &lon, &ph, &rec.DataSource, &rec.UploadTimestamp,
			&created, &extra)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = created
		if lat.Valid {
			rec.Latitude = &lat.Float64
		}
		if lon.Valid {
			rec.Longitude = &lon.Float64
		}
		if ph.Valid {
			rec.SoilPH = &ph.Float64
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &rec.Extra); err != nil {
				log.Printf("duckdb: bad extra payload for field %s: %v", rec.FieldID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetStatistics(ctx context.Context) (storage.Statistics, error) {
	var stats storage.Statistics
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COUNT(DISTINCT crop_type), COUNT(DISTINCT state),
		COALESCE(AVG(yield_per_hectare), 0), COALESCE(MIN(yield_per_hectare), 0),
		COALESCE(MAX(yield_per_hectare), 0), COALESCE(SUM(field_size_hectares), 0)
		FROM crop_records`).Scan(&stats.TotalRecords, &stats.UniqueCrops, &stats.UniqueStates,
		&stats.AvgYield, &stats.MinYield, &stats.MaxYield, &stats.TotalArea)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(MIN(upload_timestamp), 0), COALESCE(MAX(upload_timestamp), 0)
		FROM upload_batches`).Scan(&stats.TotalUploads, &stats.FirstUpload, &stats.LatestUpload)
	if err != nil {
		return stats, err
	}
	stats.AvgYield = storage.Round2(stats.AvgYield)
	stats.MinYield = storage.Round2(stats.MinYield)
	stats.MaxYield = storage.Round2(stats.MaxYield)
	stats.TotalArea = storage.Round2(stats.TotalArea)
	return stats, nil
}

func (s *Store) YieldAnalysis(ctx context.Context, state, cropType string) ([]storage.YieldAnalysisRow, error) {
	var conds []string
	var args []any
	if state != "" {
		conds = append(conds, "state ILIKE '%' || ? || '%'")
		args = append(args, state)
	}
	if cropType != "" {
		conds = append(conds, "crop_type ILIKE '%' || ? || '%'")
		args = append(args, cropType)
	}
	query := `SELECT state, crop_type, COUNT(*), AVG(yield_per_hectare),
		MIN(yield_per_hectare), MAX(yield_per_hectare), COALESCE(SUM(field_size_hectares), 0)
		FROM crop_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY state, crop_type ORDER BY AVG(yield_per_hectare) DESC, state, crop_type"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.YieldAnalysisRow
	for rows.Next() {
		var r storage.YieldAnalysisRow
		if err := rows.Scan(&r.State, &r.CropType, &r.RecordCount, &r.AvgYield, &r.MinYield, &r.MaxYield, &r.TotalArea); err != nil {
			return nil, err
		}
		r.AvgYield = storage.Round2(r.AvgYield)
		r.MinYield = storage.Round2(r.MinYield)
		r.MaxYield = storage.Round2(r.MaxYield)
		r.TotalArea = storage.Round2(r.TotalArea)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CropDistribution(ctx context.Context) ([]storage.StateDistribution, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, crop_type, COUNT(*),
		COALESCE(SUM(field_size_hectares), 0), AVG(yield_per_hectare)
		FROM crop_records GROUP BY state, crop_type
		ORDER BY state, COUNT(*) DESC, crop_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byState := make(map[string]*storage.StateDistribution)
	var order []string
	for rows.Next() {
		var state string
		var share storage.CropShare
		if err := rows.Scan(&state, &share.CropType, &share.RecordCount, &share.TotalArea, &share.AvgYield); err != nil {
			return nil, err
		}
		share.TotalArea = storage.Round2(share.TotalArea)
		share.AvgYield = storage.Round2(share.AvgYield)
		dist, ok := byState[state]
		if !ok {
			dist = &storage.StateDistribution{State: state}
			byState[state] = dist
			order = append(order, state)
		}
		dist.TotalRecords += share.RecordCount
		dist.Crops = append(dist.Crops, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]storage.StateDistribution, 0, len(order))
	for _, state := range order {
		out = append(out, *byState[state])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalRecords > out[j].TotalRecords })
	return out, nil
}

func (s *Store) TopPerformers(ctx context.Context, limit int) ([]storage.CropPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT crop_type, AVG(yield_per_hectare), COUNT(*),
		COALESCE(SUM(field_size_hectares), 0), COUNT(DISTINCT state)
		FROM crop_records GROUP BY crop_type
		ORDER BY AVG(yield_per_hectare) DESC, crop_type LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.CropPerformance
	for rows.Next() {
		var p storage.CropPerformance
		if err := rows.Scan(&p.CropType, &p.AvgYield, &p.TotalRecords, &p.TotalArea, &p.StatesCount); err != nil {
			return nil, err
		}
		p.AvgYield = storage.Round2(p.AvgYield)
		p.TotalArea = storage.Round2(p.TotalArea)
		out = append(out, p)
	}
	return out, rows.Err()
}
