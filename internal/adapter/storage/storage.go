// Package storage selects and prepares the configured domain.Store backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/location-import-service/internal/adapter/memstore"
	"github.com/couchcryptid/location-import-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/location-import-service/internal/domain"
)

// Supported STORAGE_DRIVER values.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	// Bootstrap creates the default location type hierarchy after migrating.
	Bootstrap bool
}

// Open returns a ready store: connected, migrated and optionally bootstrapped.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (domain.Store, error) {
	var store domain.Store
	switch cfg.Driver {
	case DriverMemory:
		store = memstore.New()
	case DriverSQLite, "":
		s, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		store = s
	case DriverPostgres:
		s, err := sqlstore.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	logger.Info("store opened", "driver", driverName(cfg.Driver))

	if cfg.Bootstrap {
		types, err := Bootstrap(ctx, store)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("location types ready", "count", len(types))
	}
	return store, nil
}

// Bootstrap ensures every entry of domain.DefaultLocationTypes exists with
// its parent wired. It is idempotent.
func Bootstrap(ctx context.Context, store domain.LocationStore) ([]domain.LocationType, error) {
	byName := make(map[string]domain.LocationType, len(domain.DefaultLocationTypes))
	out := make([]domain.LocationType, 0, len(domain.DefaultLocationTypes))
	for _, want := range domain.DefaultLocationTypes {
		var parentID *string
		if want.Parent != "" {
			parent, ok := byName[want.Parent]
			if !ok {
				return nil, fmt.Errorf("location type %q listed before its parent %q", want.Name, want.Parent)
			}
			parentID = &parent.ID
		}
		lt, _, err := store.GetOrCreateLocationType(ctx, want.Name, parentID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap location type %q: %w", want.Name, err)
		}
		byName[want.Name] = lt
		out = append(out, lt)
	}
	return out, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverSQLite
	}
	return d
}
