// Package temporal provides the Temporal integration for durable harvests.
//
// The package provides:
//
//   - HarvestWorkflowClient: starts and inspects harvest workflows
//   - RequestHandler: starts a workflow for each harvest request event
//   - WorkerManager: worker lifecycle for cmd/worker
//
// Workflow and activity implementations live in the workflows and
// activities subpackages. Shared input and result types are defined here
// so that the server layer does not import the workflows package.
//
// # Client Setup
//
//	c, err := temporal.NewClient(ctx, temporal.ClientConfigFromConfig(cfg.Temporal))
//	if err != nil {
//	    return err
//	}
//	wc := temporal.NewHarvestWorkflowClient(c, cfg.Temporal.TaskQueue)
//	defer wc.Close()
//
// # Starting Workflows
//
//	workflowID, runID, err := wc.StartHarvestWorkflow(ctx, temporal.HarvestWorkflowInput{
//	    HarvestID:     "harvest-" + id,
//	    Query:         "crispr[tiab]",
//	    ExpandRelated: true,
//	    MaxRelated:    25,
//	})
//
// The harvest ID is the workflow ID. A workflow ID may be reused only after
// a failed run, so a redelivered request for the same harvest is reported as
// ErrWorkflowAlreadyStarted:
//
//	if temporal.IsWorkflowAlreadyStarted(err) {
//	    // already running or completed
//	}
package temporal
