package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/harvest"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

// DirectHandler runs harvest requests in process and publishes the outcome.
// It is used when Temporal is disabled.
type DirectHandler struct {
	runner    *harvest.Runner
	publisher CompletionPublisher
	logger    zerolog.Logger
}

var _ Handler = (*DirectHandler)(nil)

// NewDirectHandler creates a DirectHandler. publisher may be nil.
func NewDirectHandler(runner *harvest.Runner, publisher CompletionPublisher, logger zerolog.Logger) *DirectHandler {
	return &DirectHandler{
		runner:    runner,
		publisher: publisher,
		logger:    logger.With().Str("component", "direct_harvest_handler").Logger(),
	}
}

// HandleHarvestRequested runs the request under a harvest id derived from
// the event id. A failed run is published as a failure event and returned.
func (h *DirectHandler) HandleHarvestRequested(ctx context.Context, event domain.HarvestRequestedEvent) error {
	harvestID := event.HarvestID()
	ctx = observability.WithHarvestID(ctx, harvestID)
	logger := observability.WithHarvestContext(h.logger, harvestID, string(event.Mode()))

	start := time.Now()
	res, runErr := h.runner.Run(ctx, harvest.RequestFromEvent(event))

	var completed *domain.HarvestCompletedEvent
	if runErr != nil {
		completed = domain.NewHarvestCompletedEvent(harvestID, event.Mode(), nil).MarkFailed(runErr)
	} else {
		completed = domain.NewHarvestCompletedEvent(harvestID, event.Mode(), res.Articles)
		completed.LinksCreated = res.LinksCreated
	}
	completed.Query = event.Query
	completed.Duration = time.Since(start)

	if h.publisher != nil {
		if err := h.publisher.PublishCompleted(ctx, completed); err != nil {
			logger.Error().Err(err).Msg("failed to publish harvest outcome")
			if runErr == nil {
				return err
			}
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info().
		Int("created", len(completed.Created)).
		Int("already_existed", len(completed.AlreadyExisted)).
		Dur("duration", completed.Duration).
		Msg("harvest request handled")
	return nil
}
