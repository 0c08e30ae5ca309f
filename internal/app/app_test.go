package app

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/memory"
	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("BOOTSTRAP_LOCATION_TYPES", "true")
	t.Setenv("BLOB_DRIVER", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_RunsImport(t *testing.T) {
	cfg := memoryConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting(), Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	job, err := a.Runner.RunFile(ctx, "sites.csv", strings.NewReader("name,city,state\nNYC01-DC,New York,NJ\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)

	sites, err := a.Store.ListLocations(ctx, domain.LocationFilter{LocationType: domain.TypeDataCenter})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "NYC01-DC", sites[0].Name)
}

func TestNew_BlobOverride(t *testing.T) {
	cfg := memoryConfig(t)
	blobs := memory.New()

	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting(), Options{Blobs: blobs})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Same(t, blobs, a.Blobs)
}

func TestNew_UnknownBlobDriverClosesStore(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.BlobDriver = "ftp"

	_, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}
