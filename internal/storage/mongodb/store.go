// Package mongodb implements the storage contract on a document store.
// Analytics run as aggregation pipelines inside the server, mirroring the
// grouped SQL the duckdb backend issues; field names are identical.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/storage"
)

const (
	recordsCollection = "crop_data"
	batchesCollection = "upload_batches"
)

// Store is the document-oriented backend.
type Store struct {
	client  *mongo.Client
	records *mongo.Collection
	batches *mongo.Collection
}

// Open connects to MongoDB and ensures the indexes the query and analytics
// paths lean on.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &models.StorageUnavailableError{Backend: "mongodb", Err: err}
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		records: db.Collection(recordsCollection),
		batches: db.Collection(batchesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("mongodb: failed to create some indexes: %v", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "upload_batch_id", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "crop_type", Value: 1}}},
		{Keys: bson.D{{Key: "upload_timestamp", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.batches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "batch_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return &models.StorageUnavailableError{Backend: "mongodb", Err: err}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// InsertBatch bulk-inserts unordered so every document is attempted, then
// retries the failed remainder one document at a time.
func (s *Store) InsertBatch(ctx context.Context, records []models.CropRecord, batchID string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	docs := make([]any, len(records))
	for i := range records {
		records[i].BatchID = batchID
		docs[i] = records[i]
	}

	_, err := s.records.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(records), nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return 0, &models.PartialPersistenceError{Attempted: len(records), Persisted: 0, Err: err}
	}

	failed := make(map[int]struct{}, len(bulkErr.WriteErrors))
	for _, we := range bulkErr.WriteErrors {
		failed[we.Index] = struct{}{}
	}
	persisted := len(records) - len(failed)
	var lastErr error
	for i := range failed {
		if _, err := s.records.InsertOne(ctx, docs[i]); err != nil {
			lastErr = err
			log.Printf("mongodb: insert retry failed for record %d of batch %s: %v", i, batchID, err)
			continue
		}
		persisted++
	}
	if persisted < len(records) {
		return persisted, &models.PartialPersistenceError{Attempted: len(records), Persisted: persisted, Err: lastErr}
	}
	return persisted, nil
}

func (s *Store) RecordBatchMetadata(ctx context.Context, batch models.UploadBatch) error {
	if _, err := s.batches.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("record batch metadata: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, batchID string) (*models.UploadBatch, error) {
	var b models.UploadBatch
	err := s.batches.FindOne(ctx, bson.M{"batch_id": batchID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func regexFilter(value string) bson.M {
	return bson.M{"$regex": value, "$options": "i"}
}

func (s *Store) QueryRecords(ctx context.Context, filter storage.RecordFilter, limit, offset int) ([]models.CropRecord, error) {
	query := bson.M{}
	if filter.CropType != "" {
		query["crop_type"] = regexFilter(filter.CropType)
	}
	if filter.State != "" {
		query["state"] = regexFilter(filter.State)
	}
	if filter.District != "" {
		query["district"] = regexFilter(filter.District)
	}
	if filter.BatchID != "" {
		query["upload_batch_id"] = filter.BatchID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "upload_timestamp", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.records.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CropRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetStatistics(ctx context.Context) (storage.Statistics, error) {
	var stats storage.Statistics

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"total_records": bson.M{"$sum": 1},
			"unique_crops":  bson.M{"$addToSet": "$crop_type"},
			"unique_states": bson.M{"$addToSet": "$state"},
			"avg_yield":     bson.M{"$avg": "$yield_per_hectare"},
			"min_yield":     bson.M{"$min": "$yield_per_hectare"},
			"max_yield":     bson.M{"$max": "$yield_per_hectare"},
			"total_area":    bson.M{"$sum": "$field_size_hectares"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"total_records": 1,
			"unique_crops":  bson.M{"$size": "$unique_crops"},
			"unique_states": bson.M{"$size": "$unique_states"},
			"avg_yield":     1,
			"min_yield":     1,
			"max_yield":     1,
			"total_area":    1,
		}}},
	}
	cur, err := s.records.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		TotalRecords int64   `bson:"total_records"`
		UniqueCrops  int64   `bson:"unique_crops"`
		UniqueStates int64   `bson:"unique_states"`
		AvgYield     float64 `bson:"avg_yield"`
		MinYield     float64 `bson:"min_yield"`
		MaxYield     float64 `bson:"max_yield"`
		TotalArea    float64 `bson:"total_area"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats, err
	}
	if len(rows) > 0 {
		stats.TotalRecords = rows[0].TotalRecords
		stats.UniqueCrops = rows[0].UniqueCrops
		stats.UniqueStates = rows[0].UniqueStates
		stats.AvgYield = storage.Round2(rows[0].AvgYield)
		stats.MinYield = storage.Round2(rows[0].MinYield)
		stats.MaxYield = storage.Round2(rows[0].MaxYield)
		stats.TotalArea = storage.Round2(rows[0].TotalArea)
	}

	bcur, err := s.batches.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"total_uploads": bson.M{"$sum": 1},
			"first_upload":  bson.M{"$min": "$upload_timestamp"},
			"latest_upload": bson.M{"$max": "$upload_timestamp"},
		}}},
	})
	if err != nil {
		return stats, err
	}
	defer bcur.Close(ctx)
	var brows []struct {
		TotalUploads int64 `bson:"total_uploads"`
		FirstUpload  int64 `bson:"first_upload"`
		LatestUpload int64 `bson:"latest_upload"`
	}
	if err := bcur.All(ctx, &brows); err != nil {
		return stats, err
	}
	if len(brows) > 0 {
		stats.TotalUploads = brows[0].TotalUploads
		stats.FirstUpload = brows[0].FirstUpload
		stats.LatestUpload = brows[0].LatestUpload
	}
	return stats, nil
}

func (s *Store) YieldAnalysis(ctx context.Context, state, cropType string) ([]storage.YieldAnalysisRow, error) {
	match := bson.M{}
	if state != "" {
		match["state"] = regexFilter(state)
	}
	if cropType != "" {
		match["crop_type"] = regexFilter(cropType)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          bson.M{"state": "$state", "crop_type": "$crop_type"},
			"record_count": bson.M{"$sum": 1},
			"avg_yield":    bson.M{"$avg": "$yield_per_hectare"},
			"min_yield":    bson.M{"$min": "$yield_per_hectare"},
			"max_yield":    bson.M{"$max": "$yield_per_hectare"},
			"total_area":   bson.M{"$sum": "$field_size_hectares"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"state":        "$_id.state",
			"crop_type":    "$_id.crop_type",
			"record_count": 1,
			"avg_yield":    1,
			"min_yield":    1,
			"max_yield":    1,
			"total_area":   1,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "avg_yield", Value: -1},
			{Key: "state", Value: 1},
			{Key: "crop_type", Value: 1},
		}}},
	}
	cur, err := s.records.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []storage.YieldAnalysisRow
	for cur.Next(ctx) {
		var r struct {
			State       string  `bson:"state"`
			CropType    string  `bson:"crop_type"`
			RecordCount int64   `bson:"record_count"`
			AvgYield    float64 `bson:"avg_yield"`
			MinYield    float64 `bson:"min_yield"`
			MaxYield    float64 `bson:"max_yield"`
			TotalArea   float64 `bson:"total_area"`
		}
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, storage.YieldAnalysisRow{
			State:       r.State,
			CropType:    r.CropType,
			RecordCount: r.RecordCount,
			AvgYield:    storage.Round2(r.AvgYield),
			MinYield:    storage.Round2(r.MinYield),
			MaxYield:    storage.Round2(r.MaxYield),
			TotalArea:   storage.Round2(r.TotalArea),
		})
	}
	return out, cur.Err()
}

func (s *Store) CropDistribution(ctx context.Context) ([]storage.StateDistribution, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          bson.M{"state": "$state", "crop_type": "$crop_type"},
			"record_count": bson.M{"$sum": 1},
			"total_area":   bson.M{"$sum": "$field_size_hectares"},
			"avg_yield":    bson.M{"$avg": "$yield_per_hectare"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"state":        "$_id.state",
			"crop_type":    "$_id.crop_type",
			"record_count": 1,
			"total_area":   1,
			"avg_yield":    1,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "state", Value: 1},
			{Key: "record_count", Value: -1},
			{Key: "crop_type", Value: 1},
		}}},
	}
	cur, err := s.records.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	byState := make(map[string]*storage.StateDistribution)
	var order []string
	for cur.Next(ctx) {
		var r struct {
			State       string  `bson:"state"`
			CropType    string  `bson:"crop_type"`
			RecordCount int64   `bson:"record_count"`
			TotalArea   float64 `bson:"total_area"`
			AvgYield    float64 `bson:"avg_yield"`
		}
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		dist, ok := byState[r.State]
		if !ok {
			dist = &storage.StateDistribution{State: r.State}
			byState[r.State] = dist
			order = append(order, r.State)
		}
		dist.TotalRecords += r.RecordCount
		dist.Crops = append(dist.Crops, storage.CropShare{
			CropType:    r.CropType,
			RecordCount: r.RecordCount,
			TotalArea:   storage.Round2(r.TotalArea),
			AvgYield:    storage.Round2(r.AvgYield),
		})
	}
	if err := cur.Err(); err != nil {
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
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           "$crop_type",
			"avg_yield":     bson.M{"$avg": "$yield_per_hectare"},
			"total_records": bson.M{"$sum": 1},
			"total_area":    bson.M{"$sum": "$field_size_hectares"},
			"states":        bson.M{"$addToSet": "$state"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"crop_type":     "$_id",
			"avg_yield":     1,
			"total_records": 1,
			"total_area":    1,
			"states_count":  bson.M{"$size": "$states"},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "avg_yield", Value: -1},
			{Key: "crop_type", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := s.records.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []storage.CropPerformance
	for cur.Next(ctx) {
		var r struct {
			CropType     string  `bson:"crop_type"`
			AvgYield     float64 `bson:"avg_yield"`
			TotalRecords int64   `bson:"total_records"`
			TotalArea    float64 `bson:"total_area"`
			StatesCount  int64   `bson:"states_count"`
		}
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, storage.CropPerformance{
			CropType:     r.CropType,
			AvgYield:     storage.Round2(r.AvgYield),
			TotalRecords: r.TotalRecords,
			TotalArea:    storage.Round2(r.TotalArea),
			StatesCount:  r.StatesCount,
		})
	}
	return out, cur.Err()
}
