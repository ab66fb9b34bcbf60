package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/config"
	"github.com/couchcryptid/deal-discovery/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces processing messages to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured processing topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one message keyed by photo id, so every result for a
// photo lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, result domain.EnrichmentResult) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	p.logger.Debug("processing message written", "photo_id", result.PhotoID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an EnrichmentResult into a Kafka message.
func serializeToMessage(result domain.EnrichmentResult) (kafkago.Message, error) {
	data, err := domain.MarshalMessage(result)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(result.PhotoID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "photo_id", Value: []byte(result.PhotoID)},
			{Key: "published_at", Value: []byte(result.Timestamp.UTC().Format(time.RFC3339))},
		},
	}, nil
}
