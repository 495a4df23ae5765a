package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"crop-analytics-backend/internal/cache"
	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/services/analytics"
	"crop-analytics-backend/internal/services/ingest"
	"crop-analytics-backend/internal/services/prediction"
	"crop-analytics-backend/internal/storage"
)

type fakeStore struct {
	pingErr    error
	records    []models.CropRecord
	lastFilter storage.RecordFilter
	lastLimit  int
	lastOffset int
	batch      *models.UploadBatch
	inserted   int
	topLimit   int
	statistics storage.Statistics
}

func (f *fakeStore) InsertBatch(_ context.Context, records []models.CropRecord, _ string) (int, error) {
	f.inserted += len(records)
	return len(records), nil
}
func (f *fakeStore) RecordBatchMetadata(context.Context, models.UploadBatch) error { return nil }
func (f *fakeStore) GetBatch(_ context.Context, id string) (*models.UploadBatch, error) {
	if f.batch != nil && f.batch.BatchID == id {
		return f.batch, nil
	}
	return nil, storage.ErrBatchNotFound
}
func (f *fakeStore) QueryRecords(_ context.Context, filter storage.RecordFilter, limit, offset int) ([]models.CropRecord, error) {
	f.lastFilter, f.lastLimit, f.lastOffset = filter, limit, offset
	return f.records, nil
}
func (f *fakeStore) GetStatistics(context.Context) (storage.Statistics, error) {
	return f.statistics, nil
}
func (f *fakeStore) YieldAnalysis(context.Context, string, string) ([]storage.YieldAnalysisRow, error) {
	return nil, nil
}
func (f *fakeStore) CropDistribution(context.Context) ([]storage.StateDistribution, error) {
	return nil, nil
}
func (f *fakeStore) TopPerformers(_ context.Context, limit int) ([]storage.CropPerformance, error) {
	f.topLimit = limit
	return []storage.CropPerformance{{CropType: "Rice", AvgYield: 45}}, nil
}
func (f *fakeStore) Ping(context.Context) error  { return f.pingErr }
func (f *fakeStore) Close(context.Context) error { return nil }

func newRouter(store storage.Store, batches *cache.BatchCache, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(
		ingest.NewService(store, batches, 2),
		analytics.NewService(store),
		prediction.NewService(nil),
		store, batches, "duckdb", maxUpload,
	)
	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/upload", h.Upload)
	api.GET("/records", h.ListRecords)
	api.GET("/batches/:batchId", h.GetBatch)
	api.GET("/statistics", h.Statistics)
	api.GET("/analytics/yield", h.YieldAnalysis)
	api.GET("/analytics/crop-distribution", h.CropDistribution)
	api.GET("/analytics/top-performers", h.TopPerformers)
	api.POST("/predict/yield", h.PredictYield)
	return r
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", body.String(), err)
	}
	return out
}

const sampleCSV = "State,District,Crop,Yield,Area\nPunjab,Ludhiana,Rice,40,2\nPunjab,Patiala,Rice,-5,3\n"

func TestUpload(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, nil, 0)

	body, contentType := multipartCSV(t, "fields.csv", sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w.Body)
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}
	data := resp["data"].(map[string]any)
	if data["totalRows"].(float64) != 2 || data["validRows"].(float64) != 1 || data["invalidRows"].(float64) != 1 {
		t.Errorf("summary = %v", data)
	}
	if len(data["errors"].([]any)) != 1 {
		t.Errorf("errors = %v", data["errors"])
	}
	if store.inserted != 1 {
		t.Errorf("store received %d records, want 1", store.inserted)
	}
}

func TestUploadMissingFile(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadUnsupportedExtension(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, nil, 0)

	body, contentType := multipartCSV(t, "fields.pdf", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if store.inserted != 0 {
		t.Error("nothing should reach storage for a rejected format")
	}
}

func TestUploadOversize(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 10) // 10 byte cap
	body, contentType := multipartCSV(t, "fields.csv", sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadStorageDown(t *testing.T) {
	store := &fakeStore{pingErr: &models.StorageUnavailableError{Backend: "duckdb", Err: errors.New("gone")}}
	r := newRouter(store, nil, 0)

	body, contentType := multipartCSV(t, "fields.csv", sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	resp := decodeEnvelope(t, w.Body)
	if resp["success"] != false {
		t.Errorf("success = %v", resp["success"])
	}
}

func TestListRecords(t *testing.T) {
	store := &fakeStore{records: []models.CropRecord{{FieldID: "f1", CropType: "Rice"}}}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/records?crop_type=rice&state=punjab&limit=5&offset=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.lastFilter.CropType != "rice" || store.lastFilter.State != "punjab" {
		t.Errorf("filter = %+v", store.lastFilter)
	}
	if store.lastLimit != 5 || store.lastOffset != 10 {
		t.Errorf("pagination = limit %d offset %d", store.lastLimit, store.lastOffset)
	}
	data := decodeEnvelope(t, w.Body)["data"].(map[string]any)
	if data["count"].(float64) != 1 {
		t.Errorf("count = %v", data["count"])
	}
}

func TestListRecordsBatchFilterNames(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/records?upload_batch_id=b1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if store.lastFilter.BatchID != "b1" {
		t.Errorf("upload_batch_id: filter = %+v, want BatchID b1", store.lastFilter)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/records?batch_id=b2", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if store.lastFilter.BatchID != "b2" {
		t.Errorf("batch_id alias: filter = %+v, want BatchID b2", store.lastFilter)
	}
}

func TestListRecordsClampsLimit(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/records?limit=99999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if store.lastLimit != maxPageSize {
		t.Errorf("limit = %d, want clamp to %d", store.lastLimit, maxPageSize)
	}
}

func TestGetBatchFromStore(t *testing.T) {
	store := &fakeStore{batch: &models.UploadBatch{BatchID: "b1", Filename: "fields.csv"}}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/batches/b1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decodeEnvelope(t, w.Body)["data"].(map[string]any)
	if data["filename"] != "fields.csv" {
		t.Errorf("data = %v", data)
	}
}

func TestGetBatchServedFromCache(t *testing.T) {
	store := &fakeStore{} // store knows nothing
	batches := cache.NewBatchCache(4, time.Minute)
	batches.Add(models.UploadBatch{BatchID: "b1", Filename: "cached.csv"})
	r := newRouter(store, batches, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/batches/b1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decodeEnvelope(t, w.Body)["data"].(map[string]any)
	if data["filename"] != "cached.csv" {
		t.Errorf("data = %v", data)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/batches/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStatistics(t *testing.T) {
	store := &fakeStore{statistics: storage.Statistics{TotalRecords: 12, AvgYield: 33.5}}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	data := decodeEnvelope(t, w.Body)["data"].(map[string]any)
	if data["total_records"].(float64) != 12 || data["avg_yield"].(float64) != 33.5 {
		t.Errorf("data = %v", data)
	}
}

func TestTopPerformersDefaultLimit(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/top-performers", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.topLimit != 10 {
		t.Errorf("store saw limit %d, want default 10", store.topLimit)
	}
}

func TestPredictYield(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 0)

	payload := `{"crop":"Rice","temperature":25,"rainfall":180,"areaHectare":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict/yield", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	data := decodeEnvelope(t, w.Body)["data"].(map[string]any)
	if data["predicted_yield_quintal_per_hectare"].(float64) != 36 {
		t.Errorf("predicted yield = %v, want 36", data["predicted_yield_quintal_per_hectare"])
	}
}

func TestPredictYieldRequiresCrop(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/predict/yield", strings.NewReader(`{"state":"Punjab"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeStore{}, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}

	down := newRouter(&fakeStore{pingErr: errors.New("gone")}, nil, 0)
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", w.Code)
	}
}
