package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/harvest"
)

// Application error types reported by harvest activities.
const (
	ErrTypeStructural   = "structural"
	ErrTypeInvalidInput = "invalid_input"
	ErrTypeNotFound     = "not_found"
)

// ArticleHarvester is the pipeline surface used by HarvestActivities.
type ArticleHarvester interface {
	HarvestFromSearch(ctx context.Context, query string, opts domain.HarvestOptions) (*domain.HarvestResult, error)
	CreateArticlesFromIDs(ctx context.Context, pmids []string, opts domain.HarvestOptions) (*domain.HarvestResult, error)
}

// ArticleFinder loads stored articles.
type ArticleFinder interface {
	FindByPMID(ctx context.Context, pmid string) (*domain.Article, error)
}

var _ ArticleHarvester = (*harvest.Pipeline)(nil)

// HarvestActivities provides the Temporal activities that run the harvest
// pipeline and the related-article grapher.
// Methods on this struct are registered as Temporal activities via the worker.
type HarvestActivities struct {
	articles ArticleHarvester
	related  harvest.RelatedHarvester
	store    ArticleFinder
}

// NewHarvestActivities creates a new HarvestActivities instance.
func NewHarvestActivities(articles ArticleHarvester, related harvest.RelatedHarvester, store ArticleFinder) *HarvestActivities {
	return &HarvestActivities{
		articles: articles,
		related:  related,
		store:    store,
	}
}

// HarvestSearch searches PubMed and stores the matching articles.
func (a *HarvestActivities) HarvestSearch(ctx context.Context, input HarvestInput) (*HarvestOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("harvesting search results", "harvestID", input.HarvestID, "query", input.Query)

	res, err := a.articles.HarvestFromSearch(ctx, input.Query, domain.HarvestOptions{Reload: input.Reload})
	if err != nil {
		logger.Error("search harvest failed", "harvestID", input.HarvestID, "error", err)
		return nil, classify(err)
	}

	logger.Info("search harvest completed",
		"harvestID", input.HarvestID,
		"created", len(res.Created),
		"alreadyExisted", len(res.AlreadyExisted),
	)
	return retriedOutput(ctx, res), nil
}

// HarvestIDs stores the articles for an explicit id list.
func (a *HarvestActivities) HarvestIDs(ctx context.Context, input HarvestInput) (*HarvestOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("harvesting ids", "harvestID", input.HarvestID, "count", len(input.PMIDs))

	res, err := a.articles.CreateArticlesFromIDs(ctx, input.PMIDs, domain.HarvestOptions{Reload: input.Reload})
	if err != nil {
		logger.Error("id harvest failed", "harvestID", input.HarvestID, "error", err)
		return nil, classify(err)
	}

	logger.Info("id harvest completed",
		"harvestID", input.HarvestID,
		"created", len(res.Created),
		"alreadyExisted", len(res.AlreadyExisted),
	)
	return retriedOutput(ctx, res), nil
}

// ExpandRelated harvests the PubMed neighbors of one stored article and
// links them to it. Rerunning it is safe: stored neighbors are skipped and
// existing links are left alone.
func (a *HarvestActivities) ExpandRelated(ctx context.Context, input ExpandRelatedInput) (*ExpandRelatedOutput, error) {
	logger := activity.GetLogger(ctx)

	article, err := a.store.FindByPMID(ctx, input.PMID)
	if err != nil {
		logger.Error("failed to load article for expansion", "pmid", input.PMID, "error", err)
		return nil, classify(fmt.Errorf("load article %s: %w", input.PMID, err))
	}

	res, err := a.related.HarvestRelated(ctx, article)
	if err != nil {
		logger.Error("related harvest failed", "pmid", input.PMID, "error", err)
		return nil, classify(err)
	}

	out := &ExpandRelatedOutput{
		PMID:         input.PMID,
		Neighbors:    len(res.Neighbors),
		LinksCreated: res.LinksCreated,
	}
	if res.Articles != nil {
		out.Created = res.Articles.Created
	}

	logger.Info("related harvest completed",
		"harvestID", input.HarvestID,
		"pmid", input.PMID,
		"neighbors", out.Neighbors,
		"linksCreated", out.LinksCreated,
	)
	return out, nil
}

func retriedOutput(ctx context.Context, res *domain.HarvestResult) *HarvestOutput {
	out := outputFromResult(res)
	out.Retried = activity.GetInfo(ctx).Attempt > 1
	return out
}

// classify marks failures that a retry cannot fix as non-retryable.
// Connection and persistence errors stay retryable.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrStructural):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeStructural, err)
	case errors.Is(err, domain.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	default:
		return err
	}
}
