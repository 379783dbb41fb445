package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

// CompletionPublisher announces finished harvest runs.
type CompletionPublisher interface {
	PublishCompleted(ctx context.Context, event *domain.HarvestCompletedEvent) error
}

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig holds Kafka producer settings.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// Publisher writes completion events to Kafka.
type Publisher struct {
	writer  messageWriter
	logger  zerolog.Logger
	metrics *observability.Metrics
}

var _ CompletionPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher for cfg.Topic. Messages are keyed by
// harvest id so events for one run stay ordered.
func NewPublisher(cfg PublisherConfig, logger zerolog.Logger, metrics *observability.Metrics) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(writer, logger, metrics)
}

func newPublisher(writer messageWriter, logger zerolog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:  writer,
		logger:  logger.With().Str("component", "harvest_event_publisher").Logger(),
		metrics: metrics,
	}
}

// PublishCompleted writes event to the completion topic.
func (p *Publisher) PublishCompleted(ctx context.Context, event *domain.HarvestCompletedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.HarvestID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordEventPublished("error")
		return fmt.Errorf("publish completion event: %w", err)
	}
	p.metrics.RecordEventPublished("ok")

	p.logger.Debug().
		Str("harvest_id", event.HarvestID).
		Str("event_type", event.EventType).
		Msg("published harvest event")
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes completion events to a logger. It stands in for
// Publisher when Kafka is disabled.
type LogPublisher struct {
	logger zerolog.Logger
}

var _ CompletionPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "harvest_event_log").Logger()}
}

// PublishCompleted logs event and never fails.
func (p *LogPublisher) PublishCompleted(_ context.Context, event *domain.HarvestCompletedEvent) error {
	p.logger.Info().
		Str("harvest_id", event.HarvestID).
		Str("event_type", event.EventType).
		Str("mode", string(event.Mode)).
		Int("created", len(event.Created)).
		Int("links_created", event.LinksCreated).
		Str("error", event.Error).
		Msg("harvest finished")
	return nil
}
