package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/location-import-service/internal/adapter/memstore"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedJob(t *testing.T) (*memstore.Store, domain.JobResult) {
	t.Helper()
	store := memstore.New()
	job, err := store.CreateJobResult(context.Background(), domain.JobResult{JobName: domain.ImportJobName, Status: domain.JobRunning})
	require.NoError(t, err)
	return store, job
}

func TestJobLogHandler_PersistsAndForwards(t *testing.T) {
	store, job := newLoggedJob(t)
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newJobLogHandler(inner, store, job.ID))
	logger.Debug("debug only")
	logger.Info("Created site: DEN01-DC", "line", 2)
	logger.Error("row failed", "error", errors.New("boom"))

	entries, err := store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "Created site: DEN01-DC", entries[0].Message)
	assert.JSONEq(t, `{"line":2}`, entries[0].Attrs)
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.JSONEq(t, `{"error":"boom"}`, entries[1].Attrs)

	out := buf.String()
	assert.Contains(t, out, "debug only")
	assert.Contains(t, out, `"job_id":"`+job.ID+`"`)
}

func TestJobLogHandler_WithAttrsAndGroup(t *testing.T) {
	store, job := newLoggedJob(t)
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)

	logger := slog.New(newJobLogHandler(inner, store, job.ID)).
		With("file", "a.csv").
		WithGroup("row")
	logger.Info("processed", "line", 3)

	entries, err := store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"file":"a.csv","row.line":3}`, entries[0].Attrs)
}

func TestJobLogHandler_NoAttrs(t *testing.T) {
	store, job := newLoggedJob(t)
	logger := slog.New(newJobLogHandler(slog.DiscardHandler, store, job.ID))
	logger.Warn("plain")

	entries, err := store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Attrs)
	assert.Equal(t, "WARN", entries[0].Level)
}

func TestJobLogHandler_PersistFailureWarns(t *testing.T) {
	store := memstore.New()
	var buf bytes.Buffer
	logger := slog.New(newJobLogHandler(slog.NewTextHandler(&buf, nil), store, "missing"))

	logger.Info("hello")

	assert.Contains(t, buf.String(), "persist job log failed")
	assert.Contains(t, buf.String(), "hello")
}
