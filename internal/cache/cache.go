// Package cache holds recently ingested batch metadata so status polls right
// after an upload skip the storage round-trip.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"crop-analytics-backend/internal/models"
)

// BatchCache is a size-bounded TTL cache keyed by batch id. Entries are
// written once at ingest time; batches never mutate, so staleness is not a
// concern and expiry only bounds memory.
type BatchCache struct {
	lru *expirable.LRU[string, models.UploadBatch]
}

func NewBatchCache(size int, ttl time.Duration) *BatchCache {
	return &BatchCache{lru: expirable.NewLRU[string, models.UploadBatch](size, nil, ttl)}
}

func (c *BatchCache) Add(batch models.UploadBatch) {
	c.lru.Add(batch.BatchID, batch)
}

func (c *BatchCache) Get(batchID string) (models.UploadBatch, bool) {
	return c.lru.Get(batchID)
}

func (c *BatchCache) Len() int {
	return c.lru.Len()
}
