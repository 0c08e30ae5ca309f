//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/location-import-service/internal/adapter/kafka"
	"github.com/couchcryptid/location-import-service/internal/adapter/memstore"
	"github.com/couchcryptid/location-import-service/internal/adapter/storetest"
	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/importer"
	"github.com/couchcryptid/location-import-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-location-changes"

// publishedChange holds a deserialized message read from the change topic.
type publishedChange struct {
	Change  domain.LocationChange
	Key     string
	Headers map[string]string
}

func readChange(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedChange {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from change topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var change domain.LocationChange
	require.NoError(t, json.Unmarshal(msg.Value, &change), "unmarshal change message")

	return publishedChange{Change: change, Key: string(msg.Key), Headers: headers}
}

// TestImportPublishesLocationChanges runs an import against the memory store
// with the Kafka writer attached and reads the change events back.
func TestImportPublishesLocationChanges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaTopic:         testTopic,
		BatchSize:          50,
		BatchFlushInterval: 100 * time.Millisecond,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	store := memstore.New()
	storetest.Seed(t, store)
	im := importer.New(store, nil, writer, observability.NewMetricsForTesting())

	csv := "name,city,state\nNYC01-DC,New York,NJ\nNYC02-XX,New York,NJ\n"
	summary, err := im.Run(ctx, strings.NewReader(csv), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SitesCreated)
	assert.Equal(t, 1, summary.Skipped)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	state := readChange(ctx, t, consumer)
	city := readChange(ctx, t, consumer)
	site := readChange(ctx, t, consumer)

	assert.Equal(t, domain.RoleState, state.Change.Role)
	assert.Equal(t, "New Jersey", state.Change.Location.Name)
	assert.Equal(t, state.Change.Location.ID, state.Key)
	assert.Equal(t, "created", state.Headers["action"])
	assert.Equal(t, domain.TypeState, state.Headers["location_type"])

	assert.Equal(t, domain.RoleCity, city.Change.Role)
	assert.Equal(t, "New York", city.Change.Location.Name)
	require.NotNil(t, city.Change.Location.ParentID)
	assert.Equal(t, state.Change.Location.ID, *city.Change.Location.ParentID)

	assert.Equal(t, domain.RoleSite, site.Change.Role)
	assert.Equal(t, "NYC01-DC", site.Change.Location.Name)
	assert.Equal(t, domain.TypeDataCenter, site.Headers["location_type"])
	require.NotNil(t, site.Change.Location.ParentID)
	assert.Equal(t, city.Change.Location.ID, *site.Change.Location.ParentID)
	_, err = time.Parse(time.RFC3339, site.Headers["occurred_at"])
	assert.NoError(t, err)
}
