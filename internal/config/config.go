// Package config reads server settings from the environment. A local .env
// file is honored in development; every setting has a workable default so
// the server starts with no configuration at all.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendDuckDB  = "duckdb"
	BackendMongoDB = "mongodb"
)

type Config struct {
	Port           string
	StorageBackend string

	DuckDBPath string

	MongoURI      string
	MongoDatabase string

	PredictorURL     string
	PredictorTimeout time.Duration

	MaxUploadBytes int64
	Workers        int

	BatchCacheSize int
	BatchCacheTTL  time.Duration
}

// Load reads the environment, after loading .env if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:             envOrDefault("PORT", "8000"),
		StorageBackend:   envOrDefault("STORAGE_BACKEND", BackendDuckDB),
		DuckDBPath:       envOrDefault("DUCKDB_PATH", "crop_analytics.db"),
		MongoURI:         envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    envOrDefault("MONGO_DATABASE", "crop_analytics"),
		PredictorURL:     os.Getenv("PREDICTOR_URL"),
		PredictorTimeout: envDuration("PREDICTOR_TIMEOUT", 5*time.Second),
		MaxUploadBytes:   envInt64("MAX_UPLOAD_BYTES", 50<<20),
		Workers:          envInt("INGEST_WORKERS", 0), // 0 means one per CPU
		BatchCacheSize:   envInt("BATCH_CACHE_SIZE", 256),
		BatchCacheTTL:    envDuration("BATCH_CACHE_TTL", 10*time.Minute),
	}

	switch cfg.StorageBackend {
	case BackendDuckDB, BackendMongoDB:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (want %s or %s)", cfg.StorageBackend, BackendDuckDB, BackendMongoDB)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
