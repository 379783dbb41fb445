package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/events"
)

// EventActivities publishes harvest completion events.
// Methods on this struct are registered as Temporal activities via the worker.
type EventActivities struct {
	publisher events.CompletionPublisher
}

// NewEventActivities creates a new EventActivities with the given publisher.
func NewEventActivities(publisher events.CompletionPublisher) *EventActivities {
	return &EventActivities{publisher: publisher}
}

// PublishOutcome publishes the completion or failure event for a harvest.
//
// The workflow calls this with fire-and-forget semantics: a publish failure
// is logged there and never fails the harvest.
func (a *EventActivities) PublishOutcome(ctx context.Context, input PublishOutcomeInput) error {
	logger := activity.GetLogger(ctx)

	event := domain.NewHarvestCompletedEvent(input.HarvestID, input.Mode, &domain.HarvestResult{
		Created:        input.Created,
		AlreadyExisted: input.AlreadyExisted,
	})
	if input.Error != "" {
		event.MarkFailed(errors.New(input.Error))
	}
	event.Query = input.Query
	event.LinksCreated = input.LinksCreated
	event.Duration = time.Duration(input.DurationSeconds * float64(time.Second))

	if err := a.publisher.PublishCompleted(ctx, event); err != nil {
		logger.Error("failed to publish harvest outcome",
			"harvestID", input.HarvestID,
			"eventType", event.EventType,
			"error", err,
		)
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}

	logger.Info("harvest outcome published",
		"harvestID", input.HarvestID,
		"eventType", event.EventType,
	)
	return nil
}
