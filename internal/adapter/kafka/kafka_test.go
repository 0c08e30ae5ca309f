package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/couchcryptid/location-import-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMessageWriter struct {
	calls  [][]kafkago.Message
	err    error
	closed bool
}

func (m *mockMessageWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.calls = append(m.calls, msgs)
	return m.err
}

func (m *mockMessageWriter) Close() error {
	m.closed = true
	return nil
}

func change(id, name string) domain.LocationChange {
	return domain.LocationChange{
		Action: domain.ActionCreated,
		Role:   domain.RoleSite,
		Location: domain.Location{
			ID:           id,
			Name:         name,
			LocationType: domain.TypeDataCenter,
			Status:       domain.StatusActive,
		},
		JobID:      "job-1",
		OccurredAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	c := change("loc-1", "DEN01-DC")

	msg, err := serializeToMessage(c)
	require.NoError(t, err)

	assert.Equal(t, []byte("loc-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"action":"created"`)
	assert.Contains(t, string(msg.Value), `"name":"DEN01-DC"`)
	assert.Contains(t, string(msg.Value), `"job_id":"job-1"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "action", msg.Headers[0].Key)
	assert.Equal(t, []byte("created"), msg.Headers[0].Value)
	assert.Equal(t, "location_type", msg.Headers[1].Key)
	assert.Equal(t, []byte("Data Center"), msg.Headers[1].Value)
	assert.Equal(t, "occurred_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[2].Value)
}

func TestLoadBatch_Chunks(t *testing.T) {
	mw := &mockMessageWriter{}
	w := &Writer{writer: mw, batchSize: 2, logger: slog.New(slog.DiscardHandler)}

	changes := []domain.LocationChange{
		change("a", "A-DC"), change("b", "B-DC"), change("c", "C-DC"),
	}
	require.NoError(t, w.LoadBatch(context.Background(), changes))

	require.Len(t, mw.calls, 2)
	assert.Len(t, mw.calls[0], 2)
	assert.Len(t, mw.calls[1], 1)
	assert.Equal(t, []byte("c"), mw.calls[1][0].Key)
}

func TestLoadBatch_Empty(t *testing.T) {
	mw := &mockMessageWriter{}
	w := &Writer{writer: mw, batchSize: 2, logger: slog.New(slog.DiscardHandler)}

	require.NoError(t, w.LoadBatch(context.Background(), nil))
	assert.Empty(t, mw.calls)
}

func TestLoadBatch_WriteError(t *testing.T) {
	mw := &mockMessageWriter{err: errors.New("broker down")}
	w := &Writer{writer: mw, batchSize: 10, logger: slog.New(slog.DiscardHandler)}

	err := w.LoadBatch(context.Background(), []domain.LocationChange{change("a", "A-DC")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "location-changes",
		BatchSize:          25,
		BatchFlushInterval: time.Second,
	}
	w := NewWriter(cfg, slog.New(slog.DiscardHandler))

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "location-changes", kw.Topic)
	assert.Equal(t, 25, kw.BatchSize)
	assert.Equal(t, time.Second, kw.BatchTimeout)
	assert.Equal(t, 25, w.batchSize)
	require.NoError(t, w.Close())
}
