package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/temporal"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchHarvestRequest is the JSON request body for a search harvest.
type searchHarvestRequest struct {
	Query  string `json:"query" validate:"required,max=4096"`
	Reload bool   `json:"reload"`
}

// idsHarvestRequest is the JSON request body for an id harvest.
type idsHarvestRequest struct {
	PMIDs  []string `json:"pmids" validate:"required,min=1,max=10000,dive,numeric"`
	Reload bool     `json:"reload"`
}

// harvestSearch handles POST /harvests/search.
func (s *Server) harvestSearch(w http.ResponseWriter, r *http.Request) {
	var req searchHarvestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.deps.Harvester.HarvestFromSearch(r.Context(), strings.TrimSpace(req.Query), domain.HarvestOptions{Reload: req.Reload})
	if err != nil {
		s.logger.Error().Err(err).Str("query", req.Query).Msg("search harvest failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, harvestResultToResponse(domain.HarvestModeSearch, res))
}

// harvestIDs handles POST /harvests/ids.
func (s *Server) harvestIDs(w http.ResponseWriter, r *http.Request) {
	var req idsHarvestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.deps.Harvester.CreateArticlesFromIDs(r.Context(), req.PMIDs, domain.HarvestOptions{Reload: req.Reload})
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(req.PMIDs)).Msg("id harvest failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, harvestResultToResponse(domain.HarvestModeIDs, res))
}

// decodeAndValidate reads a bounded JSON body into dst and validates it.
// It writes the error response and returns false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeDomainError(w, validationError(err))
		return false
	}
	return true
}

// validationError converts validator output into a domain validation error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(strings.ToLower(fe.Field()), fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return domain.NewValidationError("body", err.Error())
}

// parsePMID reads and checks the {pmid} path parameter, writing a 400 error
// response if it is not numeric.
func (s *Server) parsePMID(w http.ResponseWriter, r *http.Request) (string, bool) {
	pmid := chi.URLParam(r, "pmid")
	if err := s.validate.Var(pmid, "required,numeric,max=20"); err != nil {
		writeError(w, http.StatusBadRequest, "pmid must be numeric")
		return "", false
	}
	return pmid, true
}

// writeDomainError maps domain and temporal errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrDuplicateEdge):
		writeError(w, http.StatusConflict, "link already exists")
	case errors.Is(err, domain.ErrRateLimited):
		var rle *domain.RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
		}
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrConnection):
		writeError(w, http.StatusBadGateway, "pubmed request failed")
	case errors.Is(err, domain.ErrStructural):
		writeError(w, http.StatusBadGateway, "malformed pubmed document")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrWorkflowFailed):
		writeError(w, http.StatusUnprocessableEntity, "harvest workflow failed")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "workflow already started")
	case errors.Is(err, temporal.ErrConnectionFailed):
		writeError(w, http.StatusServiceUnavailable, "workflow service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
