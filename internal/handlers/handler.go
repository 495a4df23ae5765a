// Package handler is the HTTP boundary: request decoding, parameter
// bounds, and error-to-status mapping. No domain logic lives here.
package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crop-analytics-backend/internal/cache"
	"crop-analytics-backend/internal/models"
	"crop-analytics-backend/internal/parser"
	"crop-analytics-backend/internal/services/analytics"
	"crop-analytics-backend/internal/services/ingest"
	"crop-analytics-backend/internal/services/prediction"
	"crop-analytics-backend/internal/storage"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type Handler struct {
	ingest         *ingest.Service
	analytics      *analytics.Service
	predictor      *prediction.Service
	store          storage.Store
	batches        *cache.BatchCache
	backendName    string
	maxUploadBytes int64
}

func New(ingestSvc *ingest.Service, analyticsSvc *analytics.Service, predictor *prediction.Service,
	store storage.Store, batches *cache.BatchCache, backendName string, maxUploadBytes int64) *Handler {
	return &Handler{
		ingest:         ingestSvc,
		analytics:      analyticsSvc,
		predictor:      predictor,
		store:          store,
		batches:        batches,
		backendName:    backendName,
		maxUploadBytes: maxUploadBytes,
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msgs ...string) {
	c.JSON(status, gin.H{"success": false, "errors": msgs})
}

// failFrom maps domain errors onto statuses. Unrecognized errors are 500s
// with the message passed through.
func failFrom(c *gin.Context, err error) {
	var formatErr *models.FileFormatError
	var unavailable *models.StorageUnavailableError
	switch {
	case errors.As(err, &formatErr):
		fail(c, http.StatusBadRequest, formatErr.Error())
	case errors.As(err, &unavailable):
		fail(c, http.StatusServiceUnavailable, unavailable.Error())
	case errors.Is(err, storage.ErrBatchNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

// Upload receives one spreadsheet, runs the full ingest pipeline, and
// returns the batch summary. Format and size problems are rejected before
// any storage work.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "file required")
		return
	}

	if !parser.SupportedExtension(file.Filename) {
		failFrom(c, &models.FileFormatError{
			Filename: file.Filename,
			Reason:   "unsupported file type, expected .csv or .xlsx",
		})
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		failFrom(c, &models.FileFormatError{
			Filename: file.Filename,
			Reason:   fmt.Sprintf("file exceeds %d byte limit", h.maxUploadBytes),
		})
		return
	}

	tmp := filepath.Join(os.TempDir(), "upload-"+uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tmp); err != nil {
		log.Printf("failed to spool upload %q: %v", file.Filename, err)
		fail(c, http.StatusInternalServerError, "could not store uploaded file")
		return
	}
	defer os.Remove(tmp)

	summary, err := h.ingest.ProcessFile(c.Request.Context(), tmp, file.Filename, file.Size)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, summary)
}

// ListRecords returns stored records, filtered and paginated.
func (h *Handler) ListRecords(c *gin.Context) {
	batchID := c.Query("upload_batch_id")
	if batchID == "" {
		batchID = c.Query("batch_id")
	}
	filter := storage.RecordFilter{
		CropType: c.Query("crop_type"),
		State:    c.Query("state"),
		District: c.Query("district"),
		BatchID:  batchID,
	}
	limit := intQuery(c, "limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.store.QueryRecords(c.Request.Context(), filter, limit, offset)
	if err != nil {
		failFrom(c, err)
		return
	}
	if records == nil {
		records = []models.CropRecord{}
	}
	ok(c, gin.H{"records": records, "count": len(records), "limit": limit, "offset": offset})
}

// GetBatch returns batch metadata, serving recent batches from the cache.
func (h *Handler) GetBatch(c *gin.Context) {
	batchID := c.Param("batchId")
	if h.batches != nil {
		if batch, hit := h.batches.Get(batchID); hit {
			ok(c, batch)
			return
		}
	}

	batch, err := h.store.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, batch)
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.analytics.Statistics(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, stats)
}

func (h *Handler) YieldAnalysis(c *gin.Context) {
	rows, err := h.analytics.YieldAnalysis(c.Request.Context(), c.Query("state"), c.Query("crop_type"))
	if err != nil {
		failFrom(c, err)
		return
	}
	if rows == nil {
		rows = []storage.YieldAnalysisRow{}
	}
	ok(c, rows)
}

func (h *Handler) CropDistribution(c *gin.Context) {
	dist, err := h.analytics.CropDistribution(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	if dist == nil {
		dist = []storage.StateDistribution{}
	}
	ok(c, dist)
}

func (h *Handler) TopPerformers(c *gin.Context) {
	perf, err := h.analytics.TopPerformers(c.Request.Context(), intQuery(c, "limit", 0))
	if err != nil {
		failFrom(c, err)
		return
	}
	if perf == nil {
		perf = []storage.CropPerformance{}
	}
	ok(c, perf)
}

// PredictYield estimates yield for the posted conditions.
func (h *Handler) PredictYield(c *gin.Context) {
	var req prediction.Request
	if err := c.BindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Crop == "" {
		fail(c, http.StatusBadRequest, "crop is required")
		return
	}

	resp, err := h.predictor.Predict(c.Request.Context(), req)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, resp)
}

// Health reports backend reachability; a degraded store answers 503 so load
// balancers stop routing uploads here.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "backend": h.backendName, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.backendName})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
