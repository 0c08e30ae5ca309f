package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/s3"
	"github.com/couchcryptid/location-import-service/internal/adapter/storage"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Location store.
	StorageDriver          string
	SQLitePath             string
	PostgresDSN            string
	BootstrapLocationTypes bool

	// Uploaded CSV files.
	BlobDriver      string
	BlobFSRoot      string
	BlobS3Bucket    string
	BlobS3Region    string
	BlobS3Endpoint  string
	BlobS3PathStyle bool
	UploadRetain    bool
	MaxUploadBytes  int64
	JobQueueSize    int

	// Change events.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	queueSize, err := parsePositiveInt("JOB_QUEUE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StorageDriver:          sharedcfg.EnvOrDefault("STORAGE_DRIVER", storage.DriverSQLite),
		SQLitePath:             sharedcfg.EnvOrDefault("SQLITE_PATH", "locations.db"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		BootstrapLocationTypes: os.Getenv("BOOTSTRAP_LOCATION_TYPES") == "true",

		BlobDriver:      sharedcfg.EnvOrDefault("BLOB_DRIVER", "fs"),
		BlobFSRoot:      sharedcfg.EnvOrDefault("BLOB_FS_ROOT", "./uploads"),
		BlobS3Bucket:    os.Getenv("BLOB_S3_BUCKET"),
		BlobS3Region:    sharedcfg.EnvOrDefault("BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint:  os.Getenv("BLOB_S3_ENDPOINT"),
		BlobS3PathStyle: os.Getenv("BLOB_S3_PATH_STYLE") == "true",
		UploadRetain:    os.Getenv("UPLOAD_RETAIN") == "true",
		MaxUploadBytes:  int64(maxUpload),
		JobQueueSize:    queueSize,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "location-changes"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	switch cfg.StorageDriver {
	case storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required when STORAGE_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.BlobDriver == "s3" && cfg.BlobS3Bucket == "" {
		return nil, errors.New("BLOB_S3_BUCKET is required when BLOB_DRIVER is s3")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// Storage returns the store backend settings.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		Driver:      c.StorageDriver,
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
		Bootstrap:   c.BootstrapLocationTypes,
	}
}

// Blob returns the upload store settings. S3 credentials come from the
// standard AWS environment and profile chain.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Driver: c.BlobDriver,
		FSRoot: c.BlobFSRoot,
		S3: s3.Config{
			Region:    c.BlobS3Region,
			Bucket:    c.BlobS3Bucket,
			Endpoint:  c.BlobS3Endpoint,
			PathStyle: c.BlobS3PathStyle,
		},
	}
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
