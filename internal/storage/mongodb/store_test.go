package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"crop-analytics-backend/internal/storage"
	"crop-analytics-backend/internal/storage/storetest"
)

// TestConformance runs against a live server so the aggregation pipelines
// are exercised for real. Set MONGO_TEST_URI to enable, e.g.
// MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/storage/mongodb/
func TestConformance(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping mongodb conformance tests")
	}

	storetest.Run(t, func(t *testing.T) storage.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbName := fmt.Sprintf("crop_analytics_test_%s", uuid.NewString()[:8])
		s, err := Open(ctx, uri, dbName)
		if err != nil {
			t.Fatalf("open mongodb store: %v", err)
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.client.Database(dbName).Drop(ctx)
			_ = s.Close(ctx)
		})
		return s
	})
}
