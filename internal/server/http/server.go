// Package httpserver provides the HTTP REST API of the PubMed harvester.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/harvest"
	"github.com/helixir/pubmed-harvester/internal/repository"
	"github.com/helixir/pubmed-harvester/internal/temporal"
)

// Harvester runs search and id harvests, previews PubMed records without
// storing them and rebuilds stored articles from their raw XML.
type Harvester interface {
	HarvestFromSearch(ctx context.Context, query string, opts domain.HarvestOptions) (*domain.HarvestResult, error)
	CreateArticlesFromIDs(ctx context.Context, pmids []string, opts domain.HarvestOptions) (*domain.HarvestResult, error)
	InstancesFromSearch(ctx context.Context, query string) ([]*domain.Article, error)
	ArticleFromID(ctx context.Context, pmid string) (*domain.Article, error)
	Reprocess(ctx context.Context, pmid string) (*domain.Article, error)
}

var _ Harvester = (*harvest.Pipeline)(nil)

// WorkflowClient defines the workflow operations used by the HTTP server.
type WorkflowClient interface {
	StartHarvestWorkflow(ctx context.Context, input temporal.HarvestWorkflowInput) (workflowID, runID string, err error)
	DescribeWorkflow(ctx context.Context, workflowID, runID string) (*temporal.WorkflowDescription, error)
	QueryProgress(ctx context.Context, workflowID, runID string) (*temporal.HarvestProgress, error)
	GetHarvestResult(ctx context.Context, workflowID, runID string) (*temporal.HarvestWorkflowResult, error)
}

// HealthCheck is one named readiness dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps holds the server dependencies. Related, Workflows and Checks are optional.
type Deps struct {
	Harvester  Harvester
	Related    harvest.RelatedHarvester
	Articles   repository.ArticleRepository
	Links      repository.LinkRepository
	Workflows  WorkflowClient
	MaxRelated int
	Checks     []HealthCheck
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(),
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/harvests/search", s.harvestSearch)
		r.Post("/harvests/ids", s.harvestIDs)

		r.Get("/articles", s.listArticles)
		r.Get("/articles/{pmid}", s.getArticle)
		r.Get("/articles/{pmid}/links", s.listArticleLinks)
		r.Post("/articles/{pmid}/related", s.harvestRelated)
		r.Post("/articles/{pmid}/reprocess", s.reprocessArticle)

		r.Post("/pubmed/search", s.previewSearch)
		r.Get("/pubmed/{pmid}", s.fetchPubMedArticle)

		r.Post("/workflows/harvest", s.startHarvestWorkflow)
		r.Get("/workflows/{workflowID}", s.getHarvestWorkflow)
		r.Get("/workflows/{workflowID}/result", s.getHarvestWorkflowResult)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler runs every dependency check.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ready"}
	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
			body[c.Name] = "unhealthy"
			s.logger.Warn().Err(err).Str("dependency", c.Name).Msg("readiness check failed")
			continue
		}
		body[c.Name] = "healthy"
	}
	writeJSON(w, status, body)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
