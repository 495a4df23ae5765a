package routes

import (
	"github.com/gin-gonic/gin"

	"crop-analytics-backend/internal/cache"
	"crop-analytics-backend/internal/config"
	handler "crop-analytics-backend/internal/handlers"
	"crop-analytics-backend/internal/services/analytics"
	"crop-analytics-backend/internal/services/ingest"
	"crop-analytics-backend/internal/services/prediction"
	"crop-analytics-backend/internal/storage"
)

// RegisterRoutes wires the services onto the router. The storage backend is
// chosen by the caller; everything behind /api is backend-agnostic.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, store storage.Store) {
	batches := cache.NewBatchCache(cfg.BatchCacheSize, cfg.BatchCacheTTL)
	ingestSvc := ingest.NewService(store, batches, cfg.Workers)
	analyticsSvc := analytics.NewService(store)

	var remote prediction.Strategy
	if cfg.PredictorURL != "" {
		remote = prediction.NewRemote(cfg.PredictorURL, cfg.PredictorTimeout)
	}
	predictor := prediction.NewService(remote)

	h := handler.New(ingestSvc, analyticsSvc, predictor, store, batches, cfg.StorageBackend, cfg.MaxUploadBytes)

	api := r.Group("/api")

	api.GET("/health", h.Health)

	api.POST("/upload", h.Upload)
	api.GET("/records", h.ListRecords)
	api.GET("/batches/:batchId", h.GetBatch)
	api.GET("/statistics", h.Statistics)

	an := api.Group("/analytics")
	{
		an.GET("/yield", h.YieldAnalysis)
		an.GET("/crop-distribution", h.CropDistribution)
		an.GET("/top-performers", h.TopPerformers)
	}

	api.POST("/predict/yield", h.PredictYield)
}
