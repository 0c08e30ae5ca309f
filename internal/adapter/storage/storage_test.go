package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/location-import-service/internal/adapter/memstore"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverMemory}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpen_SQLiteWithBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.db")
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, SQLitePath: path, Bootstrap: true}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, name := range []string{domain.TypeState, domain.TypeCity, domain.TypeDataCenter, domain.TypeBranch} {
		_, err := s.GetLocationType(context.Background(), name)
		require.NoError(t, err, name)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: DriverPostgres}, discardLogger())
	require.Error(t, err)
}

func TestBootstrap_Idempotent(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	first, err := Bootstrap(ctx, s)
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := Bootstrap(ctx, s)
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	city, err := s.GetLocationType(ctx, domain.TypeCity)
	require.NoError(t, err)
	state, err := s.GetLocationType(ctx, domain.TypeState)
	require.NoError(t, err)
	require.NotNil(t, city.ParentID)
	assert.Equal(t, state.ID, *city.ParentID)
}
