package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	info, err := s.Put(ctx, "uploads/j1/sites.csv", strings.NewReader("name,city,state\n"), core.PutOptions{ContentType: "text/csv"})
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size)
	assert.NotEmpty(t, info.ETag)
	assert.Equal(t, 1, s.Len())

	got, rc, err := s.Get(ctx, "uploads/j1/sites.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "name,city,state\n", string(b))
	assert.Equal(t, "text/csv", got.ContentType)

	_, err = s.Put(ctx, "uploads/j1/sites.csv", strings.NewReader("x"), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)

	deleted, err := s.Delete(ctx, "uploads/j1/sites.csv")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "uploads/j1/sites.csv")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _, err = s.Get(ctx, "uploads/j1/sites.csv")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, core.DriverMemory, s.Driver())
}
