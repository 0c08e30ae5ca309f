package blob

import (
	"context"
	"testing"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
	"github.com/couchcryptid/location-import-service/internal/adapter/blob/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, core.DriverFilesystem, fsStore.Driver())

	mem, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, core.DriverMemory, mem.Driver())

	s3Store, err := Open(ctx, Config{Driver: "s3", S3: s3.Config{Bucket: "uploads", AccessKeyID: "a", SecretAccessKey: "b"}})
	require.NoError(t, err)
	assert.Equal(t, core.DriverS3, s3Store.Driver())

	_, err = Open(ctx, Config{Driver: "s3"})
	require.Error(t, err)

	_, err = Open(ctx, Config{Driver: "gcs"})
	require.Error(t, err)
}
