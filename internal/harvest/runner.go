package harvest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

// RelatedHarvester expands one stored article with its PubMed neighbors.
type RelatedHarvester interface {
	HarvestRelated(ctx context.Context, article *domain.Article) (*domain.RelatedHarvestResult, error)
}

// Request describes one harvest run. Exactly one of Query or PMIDs is used;
// Query wins when both are set.
type Request struct {
	Query         string
	PMIDs         []string
	Reload        bool
	ExpandRelated bool
}

// Mode reports which entry point the request uses.
func (r Request) Mode() domain.HarvestMode {
	if r.Query != "" {
		return domain.HarvestModeSearch
	}
	return domain.HarvestModeIDs
}

// RequestFromEvent converts a harvest request message into a Request.
func RequestFromEvent(ev domain.HarvestRequestedEvent) Request {
	return Request{
		Query:         ev.Query,
		PMIDs:         ev.PMIDs,
		Reload:        ev.Reload,
		ExpandRelated: ev.ExpandRelated,
	}
}

// RunResult reports a completed Run.
type RunResult struct {
	Articles     *domain.HarvestResult
	Expanded     []string
	LinksCreated int
}

// Runner executes a full harvest in process: the search or id harvest,
// then optional related-article expansion of the created articles.
type Runner struct {
	pipeline   *Pipeline
	related    RelatedHarvester
	store      ArticleStore
	maxRelated int
	logger     zerolog.Logger
}

// NewRunner creates a Runner. maxRelated bounds how many created articles
// are expanded per run; zero disables expansion.
func NewRunner(pipeline *Pipeline, related RelatedHarvester, store ArticleStore, maxRelated int, logger zerolog.Logger) *Runner {
	return &Runner{
		pipeline:   pipeline,
		related:    related,
		store:      store,
		maxRelated: maxRelated,
		logger:     logger.With().Str("component", "harvest_runner").Logger(),
	}
}

// Run executes req.
func (r *Runner) Run(ctx context.Context, req Request) (*RunResult, error) {
	opts := domain.HarvestOptions{Reload: req.Reload}

	var (
		articles *domain.HarvestResult
		err      error
	)
	if req.Mode() == domain.HarvestModeSearch {
		articles, err = r.pipeline.HarvestFromSearch(ctx, req.Query, opts)
	} else {
		articles, err = r.pipeline.CreateArticlesFromIDs(ctx, req.PMIDs, opts)
	}
	if err != nil {
		return nil, err
	}

	result := &RunResult{Articles: articles}
	if !req.ExpandRelated || r.related == nil {
		return result, nil
	}

	for _, pmid := range ExpansionTargets(articles.Created, r.maxRelated) {
		article, err := r.store.FindByPMID(ctx, pmid)
		if err != nil {
			return nil, asPersistence("find article", pmid, err)
		}
		related, err := r.related.HarvestRelated(ctx, article)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", pmid, err)
		}
		result.Expanded = append(result.Expanded, pmid)
		result.LinksCreated += related.LinksCreated
	}

	r.logger.Info().
		Str("mode", string(req.Mode())).
		Int("created", len(articles.Created)).
		Int("expanded", len(result.Expanded)).
		Int("links_created", result.LinksCreated).
		Msg("harvest run completed")
	return result, nil
}

// ExpansionTargets returns the first max ids of created.
func ExpansionTargets(created []string, max int) []string {
	if max <= 0 {
		return nil
	}
	if len(created) > max {
		return created[:max]
	}
	return created
}
