// Package events publishes search telemetry to Kafka. Publishing is
// fire-and-forget from the request path: a broker problem is logged and
// dropped, never surfaced to the caller.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/models"
)

type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *zap.Logger
}

func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicEvents,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxRetries,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}

	logger.Info("kafka producer created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.TopicEvents))

	return &Producer{
		writer:  w,
		brokers: cfg.Brokers,
		logger:  logger,
	}
}

// HealthCheck dials the first broker; the async writer itself never
// surfaces connectivity until a batch flush fails.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p == nil || len(p.brokers) == 0 {
		return nil
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("dialing kafka broker: %w", err)
	}
	return conn.Close()
}

// PublishSearchEvent keys messages by query hash so repeats of the same
// query land on the same partition.
func (p *Producer) PublishSearchEvent(ctx context.Context, event *models.SearchEvent) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling search event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.QueryHash),
		Value: data,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tier", Value: []byte(event.Tier)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing search event: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
