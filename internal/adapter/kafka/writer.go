package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/couchcryptid/location-import-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the Writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces location change events to a Kafka topic.
// It implements importer.ChangePublisher.
type Writer struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured change topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, logger: logger}
}

// LoadBatch serializes changes and publishes them in chunks of at most
// batchSize messages. Messages for one location share a key, so they land on
// one partition in order.
func (w *Writer) LoadBatch(ctx context.Context, changes []domain.LocationChange) error {
	if len(changes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(changes))
	for i := range changes {
		msg, err := serializeToMessage(changes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	size := w.batchSize
	if size <= 0 {
		size = len(msgs)
	}
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("write location changes: %w", err)
		}
	}
	w.logger.Debug("published location changes", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LocationChange into a Kafka message.
func serializeToMessage(change domain.LocationChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(change.Location.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "action", Value: []byte(change.Action)},
			{Key: "location_type", Value: []byte(change.Location.LocationType)},
			{Key: "occurred_at", Value: []byte(change.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
