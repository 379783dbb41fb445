package temporal

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/events"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

// WorkflowStarter starts harvest workflows.
type WorkflowStarter interface {
	StartHarvestWorkflow(ctx context.Context, input HarvestWorkflowInput) (workflowID, runID string, err error)
}

// RequestHandler turns harvest request events into harvest workflows.
// It is used in place of the in-process handler when Temporal is enabled.
type RequestHandler struct {
	starter        WorkflowStarter
	maxRelated     int
	publishOutcome bool
	logger         zerolog.Logger
}

var _ events.Handler = (*RequestHandler)(nil)

// NewRequestHandler creates a RequestHandler. publishOutcome asks the
// workflow to publish a completion event when it ends.
func NewRequestHandler(starter WorkflowStarter, maxRelated int, publishOutcome bool, logger zerolog.Logger) *RequestHandler {
	return &RequestHandler{
		starter:        starter,
		maxRelated:     maxRelated,
		publishOutcome: publishOutcome,
		logger:         logger.With().Str("component", "workflow_request_handler").Logger(),
	}
}

// HandleHarvestRequested starts the workflow for event. A workflow that is
// already running or completed for the same event counts as handled.
func (h *RequestHandler) HandleHarvestRequested(ctx context.Context, event domain.HarvestRequestedEvent) error {
	input := InputFromEvent(event, h.maxRelated)
	input.PublishOutcome = h.publishOutcome

	workflowID, runID, err := h.starter.StartHarvestWorkflow(ctx, input)
	if IsWorkflowAlreadyStarted(err) {
		h.logger.Info().
			Str("harvest_id", input.HarvestID).
			Msg("harvest workflow already started, skipping redelivered request")
		return nil
	}
	if err != nil {
		return err
	}

	logger := observability.WithWorkflowContext(h.logger, workflowID, runID)
	logger.Info().
		Str("mode", string(input.Mode())).
		Msg("harvest workflow started")
	return nil
}

// InputFromEvent builds the workflow input for a harvest request event.
func InputFromEvent(event domain.HarvestRequestedEvent, maxRelated int) HarvestWorkflowInput {
	return HarvestWorkflowInput{
		HarvestID:     event.HarvestID(),
		Query:         event.Query,
		PMIDs:         event.PMIDs,
		Reload:        event.Reload,
		ExpandRelated: event.ExpandRelated,
		MaxRelated:    maxRelated,
	}
}
