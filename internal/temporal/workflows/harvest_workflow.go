// Package workflows defines the Temporal workflow that runs a PubMed harvest.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/pubmed-harvester/internal/harvest"
	litemporal "github.com/helixir/pubmed-harvester/internal/temporal"
	"github.com/helixir/pubmed-harvester/internal/temporal/activities"
)

// Activity timeout constants.
const (
	harvestActivityTimeout = 10 * time.Minute
	relatedActivityTimeout = 5 * time.Minute
	eventActivityTimeout   = 30 * time.Second
)

// Progress phases reported by the progress query.
const (
	PhaseHarvesting = "harvesting"
	PhaseExpanding  = "expanding"
	PhaseCompleted  = "completed"
	PhaseFailed     = "failed"
)

// HarvestWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type HarvestWorkflowInput = litemporal.HarvestWorkflowInput

// HarvestWorkflowResult is an alias for the shared result type.
type HarvestWorkflowResult = litemporal.HarvestWorkflowResult

// HarvestWorkflow runs one harvest:
//  1. Harvest the search results or the explicit ids
//  2. Optionally expand up to MaxRelated created articles with their
//     "similar articles" neighbors, one article at a time. A retried harvest
//     also expands the articles it reports as already existing.
//  3. Optionally publish the outcome
//
// A failed harvest or expansion fails the workflow after the failure event
// has been published.
func HarvestWorkflow(ctx workflow.Context, input HarvestWorkflowInput) (*HarvestWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	progress := &litemporal.HarvestProgress{Phase: PhaseHarvesting}
	if err := workflow.SetQueryHandler(ctx, litemporal.QueryProgress, func() (litemporal.HarvestProgress, error) {
		return *progress, nil
	}); err != nil {
		return nil, fmt.Errorf("register progress query: %w", err)
	}

	harvestCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: harvestActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    1 * time.Minute,
			MaximumAttempts:    5,
		},
	})
	relatedCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: relatedActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    1 * time.Minute,
			MaximumAttempts:    5,
		},
	})

	var harvestAct *activities.HarvestActivities

	result := &HarvestWorkflowResult{
		HarvestID: input.HarvestID,
		Mode:      input.Mode(),
	}

	fail := func(err error) (*HarvestWorkflowResult, error) {
		progress.Phase = PhaseFailed
		result.Duration = workflow.Now(ctx).Sub(startTime).Seconds()
		if input.PublishOutcome {
			publishOutcome(ctx, input, result, err)
		}
		return nil, err
	}

	logger.Info("starting harvest workflow",
		"harvestID", input.HarvestID,
		"mode", string(input.Mode()),
	)

	actInput := activities.HarvestInput{
		HarvestID: input.HarvestID,
		Query:     input.Query,
		PMIDs:     input.PMIDs,
		Reload:    input.Reload,
	}
	activityFn := harvestAct.HarvestIDs
	if input.Query != "" {
		activityFn = harvestAct.HarvestSearch
	}

	var out activities.HarvestOutput
	if err := workflow.ExecuteActivity(harvestCtx, activityFn, actInput).Get(ctx, &out); err != nil {
		logger.Error("harvest failed", "harvestID", input.HarvestID, "error", err)
		return fail(fmt.Errorf("harvest: %w", err))
	}
	result.Created = out.Created
	result.AlreadyExisted = out.AlreadyExisted
	result.Skipped = out.Skipped
	progress.Created = len(out.Created)

	if input.ExpandRelated {
		targets := harvest.ExpansionTargets(expansionCandidates(out), input.MaxRelated)
		progress.Phase = PhaseExpanding
		progress.ToExpand = len(targets)

		var relatedCreated []string
		for _, pmid := range targets {
			var rel activities.ExpandRelatedOutput
			err := workflow.ExecuteActivity(relatedCtx, harvestAct.ExpandRelated, activities.ExpandRelatedInput{
				HarvestID: input.HarvestID,
				PMID:      pmid,
			}).Get(ctx, &rel)
			if err != nil {
				logger.Error("related expansion failed", "harvestID", input.HarvestID, "pmid", pmid, "error", err)
				return fail(fmt.Errorf("expand %s: %w", pmid, err))
			}
			result.Expanded = append(result.Expanded, pmid)
			result.LinksCreated += rel.LinksCreated
			relatedCreated = append(relatedCreated, rel.Created...)

			progress.Expanded = len(result.Expanded)
			progress.LinksCreated = result.LinksCreated
		}
		result.RelatedCreated = DeduplicateStrings(relatedCreated)
	}

	progress.Phase = PhaseCompleted
	result.Duration = workflow.Now(ctx).Sub(startTime).Seconds()

	if input.PublishOutcome {
		publishOutcome(ctx, input, result, nil)
	}

	logger.Info("harvest workflow completed",
		"harvestID", input.HarvestID,
		"created", len(result.Created),
		"alreadyExisted", len(result.AlreadyExisted),
		"expanded", len(result.Expanded),
		"linksCreated", result.LinksCreated,
	)
	return result, nil
}

// expansionCandidates lists the articles this run stored. After a retried
// harvest the articles written by the failed attempt come back as already
// existing, so they are included after the created ones.
func expansionCandidates(out activities.HarvestOutput) []string {
	if !out.Retried {
		return out.Created
	}
	seen := make(map[string]struct{}, len(out.Created)+len(out.AlreadyExisted))
	candidates := make([]string, 0, len(out.Created)+len(out.AlreadyExisted))
	for _, ids := range [][]string{out.Created, out.AlreadyExisted} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// publishOutcome publishes the completion event. Failures are logged and
// never change the workflow result.
func publishOutcome(ctx workflow.Context, input HarvestWorkflowInput, result *HarvestWorkflowResult, harvestErr error) {
	eventCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: eventActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var eventAct *activities.EventActivities
	payload := activities.PublishOutcomeInput{
		HarvestID:       input.HarvestID,
		Mode:            input.Mode(),
		Query:           input.Query,
		Created:         result.Created,
		AlreadyExisted:  result.AlreadyExisted,
		LinksCreated:    result.LinksCreated,
		DurationSeconds: result.Duration,
	}
	if harvestErr != nil {
		payload.Error = harvestErr.Error()
	}

	if err := workflow.ExecuteActivity(eventCtx, eventAct.PublishOutcome, payload).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("failed to publish harvest outcome",
			"harvestID", input.HarvestID,
			"error", err,
		)
	}
}
