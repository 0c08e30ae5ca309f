// Package blob selects the blob store that holds uploaded import files.
package blob

import (
	"context"
	"fmt"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/fs"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/memory"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/s3"
)

// Config selects and parameterizes a driver.
type Config struct {
	Driver string // fs|s3|memory (default fs)
	FSRoot string
	S3     s3.Config
}

// Open returns the configured blob store.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	driver := core.Driver(cfg.Driver)
	if driver == "" {
		driver = core.DriverFilesystem
	}
	switch driver {
	case core.DriverFilesystem:
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case core.DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
