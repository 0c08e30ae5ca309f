// Package app assembles the import service from configuration.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
	kafkaadapter "github.com/couchcryptid/location-import-service/internal/adapter/kafka"
	"github.com/couchcryptid/location-import-service/internal/adapter/mapbox"
	"github.com/couchcryptid/location-import-service/internal/adapter/storage"
	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/importer"
	"github.com/couchcryptid/location-import-service/internal/jobs"
	"github.com/couchcryptid/location-import-service/internal/observability"
)

// App holds the wired components. Close releases them.
type App struct {
	Store    domain.Store
	Blobs    core.Store
	Importer *importer.Importer
	Runner   *jobs.Runner

	writer *kafkaadapter.Writer
	logger *slog.Logger
}

// Options overrides parts of the configuration for a single process.
type Options struct {
	// Blobs replaces the configured upload store when set.
	Blobs core.Store
}

// New opens the store and upload storage and wires the importer and job runner.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts Options) (*App, error) {
	store, err := storage.Open(ctx, cfg.Storage(), logger)
	if err != nil {
		return nil, err
	}

	blobs := opts.Blobs
	if blobs == nil {
		blobs, err = blob.Open(ctx, cfg.Blob())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	a := &App{Store: store, Blobs: blobs, logger: logger}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	var publisher importer.ChangePublisher
	if cfg.KafkaEnabled {
		a.writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = a.writer
		logger.Info("location change events enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	a.Importer = importer.New(store, geocoder, publisher, metrics)
	a.Runner = jobs.New(store, a.Importer, blobs, logger, metrics, jobs.Options{
		QueueSize:     cfg.JobQueueSize,
		RetainUploads: cfg.UploadRetain,
	})
	return a, nil
}

// Close flushes the event writer and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
			errs = append(errs, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
