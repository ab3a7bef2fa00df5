package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/config"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventType is the event_type header carried by every published message.
const EventType = "heatmap.generated"

// Publisher produces heatmap events to a Kafka topic.
// It implements session.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured heatmap topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		// One event per generation; don't wait for a batch to fill.
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes e and writes it keyed by session id, so a session's
// events stay ordered within one partition.
func (p *Publisher) Publish(ctx context.Context, e domain.HeatmapEvent) error {
	out, err := domain.SerializeHeatmapEvent(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, toMessage(out)); err != nil {
		return fmt.Errorf("write heatmap event: %w", err)
	}
	p.logger.Debug("heatmap event published", "session", e.SessionID, "column", e.Column)
	return nil
}

// Close flushes pending writes and closes the producer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// toMessage converts a serialized event into a Kafka message. Headers are
// sorted by key.
func toMessage(out domain.OutputEvent) kafkago.Message {
	headers := []kafkago.Header{{Key: "event_type", Value: []byte(EventType)}}
	for _, k := range slices.Sorted(maps.Keys(out.Headers)) {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(out.Headers[k])})
	}
	return kafkago.Message{
		Key:     out.Key,
		Value:   out.Value,
		Headers: headers,
	}
}
