package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/pubmed-harvester/internal/temporal"
)

// startWorkflowRequest is the JSON request body for a durable harvest.
type startWorkflowRequest struct {
	Query         string   `json:"query" validate:"required_without=PMIDs,excluded_with=PMIDs,max=4096"`
	PMIDs         []string `json:"pmids" validate:"required_without=Query,max=10000,dive,numeric"`
	Reload        bool     `json:"reload"`
	ExpandRelated bool     `json:"expand_related"`
}

// startHarvestWorkflow handles POST /workflows/harvest.
func (s *Server) startHarvestWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workflows == nil {
		writeError(w, http.StatusServiceUnavailable, "workflows are not enabled")
		return
	}

	var req startWorkflowRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	input := temporal.HarvestWorkflowInput{
		HarvestID:     "harvest-" + uuid.NewString(),
		Query:         strings.TrimSpace(req.Query),
		PMIDs:         req.PMIDs,
		Reload:        req.Reload,
		ExpandRelated: req.ExpandRelated,
		MaxRelated:    s.deps.MaxRelated,
	}

	workflowID, runID, err := s.deps.Workflows.StartHarvestWorkflow(r.Context(), input)
	if err != nil {
		s.logger.Error().Err(err).Str("harvest_id", input.HarvestID).Msg("failed to start harvest workflow")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startWorkflowResponse{
		HarvestID:  input.HarvestID,
		WorkflowID: workflowID,
		RunID:      runID,
		Mode:       string(input.Mode()),
	})
}

// getHarvestWorkflow handles GET /workflows/{workflowID}. Progress is
// included while the workflow can still answer queries.
func (s *Server) getHarvestWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workflows == nil {
		writeError(w, http.StatusServiceUnavailable, "workflows are not enabled")
		return
	}

	workflowID, ok := parseWorkflowID(w, r)
	if !ok {
		return
	}
	runID := r.URL.Query().Get("run_id")

	ctx := r.Context()
	desc, err := s.deps.Workflows.DescribeWorkflow(ctx, workflowID, runID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := workflowDescriptionToResponse(desc)

	progress, err := s.deps.Workflows.QueryProgress(ctx, workflowID, desc.RunID)
	switch {
	case temporal.IsQueryFailed(err):
		s.logger.Debug().Err(err).Str("workflow_id", workflowID).Msg("progress query failed")
	case err != nil:
		s.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("progress unavailable")
	default:
		resp.Progress = &progressResponse{
			Phase:        progress.Phase,
			Created:      progress.Created,
			ToExpand:     progress.ToExpand,
			Expanded:     progress.Expanded,
			LinksCreated: progress.LinksCreated,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// getHarvestWorkflowResult handles GET /workflows/{workflowID}/result. A
// workflow that is still running yields 202 with its status, unless
// wait=true is given, which blocks until the workflow closes or the request
// ends.
func (s *Server) getHarvestWorkflowResult(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workflows == nil {
		writeError(w, http.StatusServiceUnavailable, "workflows are not enabled")
		return
	}

	workflowID, ok := parseWorkflowID(w, r)
	if !ok {
		return
	}
	runID := r.URL.Query().Get("run_id")

	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wait must be a boolean")
			return
		}
		wait = b
	}

	ctx := r.Context()
	if !wait {
		desc, err := s.deps.Workflows.DescribeWorkflow(ctx, workflowID, runID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if desc.CloseTime == nil {
			writeJSON(w, http.StatusAccepted, workflowDescriptionToResponse(desc))
			return
		}
		runID = desc.RunID
	}

	result, err := s.deps.Workflows.GetHarvestResult(ctx, workflowID, runID)
	if err != nil {
		s.logger.Debug().Err(err).Str("workflow_id", workflowID).Msg("harvest workflow result unavailable")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflowResultToResponse(result))
}

// parseWorkflowID reads the {workflowID} path parameter, writing a 400 error
// response unless it names a harvest workflow.
func parseWorkflowID(w http.ResponseWriter, r *http.Request) (string, bool) {
	workflowID := chi.URLParam(r, "workflowID")
	if !strings.HasPrefix(workflowID, "harvest-") {
		writeError(w, http.StatusBadRequest, "workflow_id must be a harvest workflow id")
		return "", false
	}
	return workflowID, true
}
