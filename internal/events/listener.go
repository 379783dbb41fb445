package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

// Consumption outcomes recorded in metrics.
const (
	OutcomeHandled = "handled"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Handler processes one validated harvest request.
type Handler interface {
	HandleHarvestRequested(ctx context.Context, event domain.HarvestRequestedEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event domain.HarvestRequestedEvent) error

// HandleHarvestRequested calls f.
func (f HandlerFunc) HandleHarvestRequested(ctx context.Context, event domain.HarvestRequestedEvent) error {
	return f(ctx, event)
}

// messageReader is the subset of *kafka.Reader used by Listener.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig holds Kafka consumer settings.
type ListenerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Listener consumes harvest requests from Kafka.
type Listener struct {
	reader   messageReader
	handler  Handler
	validate *validator.Validate
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewListener creates a listener reading cfg.Topic as part of cfg.GroupID.
func NewListener(cfg ListenerConfig, handler Handler, logger zerolog.Logger, metrics *observability.Metrics) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newListener(reader, handler, logger, metrics)
}

func newListener(reader messageReader, handler Handler, logger zerolog.Logger, metrics *observability.Metrics) *Listener {
	return &Listener{
		reader:   reader,
		handler:  handler,
		validate: validator.New(),
		logger:   logger.With().Str("component", "harvest_request_listener").Logger(),
		metrics:  metrics,
	}
}

// Run consumes messages until ctx is cancelled. Invalid and failed messages
// are logged and skipped.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting harvest request listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("harvest request listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received harvest request")

		outcome := l.handleMessage(ctx, msg)
		l.metrics.RecordEventConsumed(outcome)
	}
}

func (l *Listener) handleMessage(ctx context.Context, msg kafka.Message) string {
	event, err := l.decode(msg.Value)
	if err != nil {
		l.logger.Error().Err(err).
			Str("raw_value", string(msg.Value)).
			Msg("discarding invalid harvest request")
		return OutcomeInvalid
	}

	ctx = observability.WithRequestID(ctx, event.EventID)
	if err := l.handler.HandleHarvestRequested(ctx, event); err != nil {
		l.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("mode", string(event.Mode())).
			Msg("failed to handle harvest request")
		return OutcomeFailed
	}
	return OutcomeHandled
}

// decode parses and validates one message. A missing event id is filled in
// so downstream ids stay unique.
func (l *Listener) decode(value []byte) (domain.HarvestRequestedEvent, error) {
	var event domain.HarvestRequestedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("unmarshal harvest request: %w", err)
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.EventType == "" {
		event.EventType = domain.EventTypeHarvestRequested
	}
	if event.EventType != domain.EventTypeHarvestRequested {
		return event, fmt.Errorf("unexpected event type %q", event.EventType)
	}
	if err := l.validate.Struct(event); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return event, domain.NewValidationError(verrs[0].Field(), verrs[0].Error())
		}
		return event, err
	}
	return event, nil
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing harvest request listener")
	return l.reader.Close()
}
