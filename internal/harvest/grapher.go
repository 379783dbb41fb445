package harvest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/observability"
	"github.com/helixir/pubmed-harvester/internal/papersources/pubmed"
)

// Grapher discovers "similar articles" neighbors and records scored links.
type Grapher struct {
	lookup   LinkLookup
	articles IDHarvester
	links    LinkStore
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewGrapher creates a Grapher. articles is usually the Pipeline; metrics may be nil.
func NewGrapher(lookup LinkLookup, articles IDHarvester, links LinkStore, logger zerolog.Logger, metrics *observability.Metrics) *Grapher {
	return &Grapher{
		lookup:   lookup,
		articles: articles,
		links:    links,
		logger:   logger.With().Str("component", "related_grapher").Logger(),
		metrics:  metrics,
	}
}

// RelatedScores returns the scored neighbors of article in response order.
// Only link sets from PubMed to PubMed in the pubmed_pubmed category count.
func (g *Grapher) RelatedScores(ctx context.Context, article *domain.Article) ([]domain.ScoredID, error) {
	res, err := g.lookup.LookupLinks(ctx, article.PMID)
	if err != nil {
		return nil, asConnection("elink", err)
	}
	if res == nil {
		return []domain.ScoredID{}, nil
	}

	scored := make([]domain.ScoredID, 0)
	for _, set := range res.LinkSets {
		for _, db := range set.LinkSetDbs {
			if db.DbTo != pubmed.DatabasePubMed || db.LinkName != pubmed.LinkNameSimilar {
				continue
			}
			for _, link := range db.Links {
				id := strings.TrimSpace(link.ID)
				if id == "" {
					continue
				}
				score, err := strconv.ParseFloat(strings.TrimSpace(link.Score), 64)
				if err != nil {
					return nil, domain.NewConnectionError("elink", fmt.Errorf("invalid score %q for pubmed id %s: %w", link.Score, id, err))
				}
				scored = append(scored, domain.ScoredID{PMID: id, Score: score})
			}
		}
	}
	return scored, nil
}

// CreateLinks stores one canonical link between article and each scored
// neighbor. Self-links are skipped and links that already exist are left
// alone. Any other store failure stops the run. It returns the number of
// links created.
func (g *Grapher) CreateLinks(ctx context.Context, article *domain.Article, scored []domain.ScoredID) (int, error) {
	created := 0
	for _, s := range scored {
		if s.PMID == article.PMID {
			continue
		}
		link, err := domain.NewRelatedLink(article.PMID, s.PMID, s.Score)
		if errors.Is(err, domain.ErrSelfLink) {
			continue
		}

		err = g.links.CreateLink(ctx, link)
		switch {
		case err == nil:
			created++
			g.metrics.RecordLinkCreated()
		case errors.Is(err, domain.ErrDuplicateEdge):
			g.metrics.RecordLinkDuplicate()
			g.logger.Debug().
				Str("pmid_low", link.LowPMID).
				Str("pmid_high", link.HighPMID).
				Msg("link already exists")
		default:
			return created, asPersistence("create link", link.LowPMID+"-"+link.HighPMID, err)
		}
	}
	return created, nil
}

// HarvestRelated stores the neighbors of article that are not stored yet and
// then links article to every neighbor.
func (g *Grapher) HarvestRelated(ctx context.Context, article *domain.Article) (*domain.RelatedHarvestResult, error) {
	start := time.Now()
	mode := string(domain.HarvestModeRelated)
	g.metrics.RecordHarvestStarted(mode)

	result, err := g.harvestRelated(ctx, article)
	if err != nil {
		g.metrics.RecordHarvestFailed(mode, kindLabel(err), time.Since(start))
		return nil, err
	}
	g.metrics.RecordHarvestCompleted(mode, len(result.Neighbors), time.Since(start))

	g.logger.Info().
		Str("pmid", article.PMID).
		Int("neighbors", len(result.Neighbors)).
		Int("created", len(result.Articles.Created)).
		Int("links_created", result.LinksCreated).
		Msg("related articles harvested")
	return result, nil
}

func (g *Grapher) harvestRelated(ctx context.Context, article *domain.Article) (*domain.RelatedHarvestResult, error) {
	scored, err := g.RelatedScores(ctx, article)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.PMID
	}

	articles, err := g.articles.CreateArticlesFromIDs(ctx, ids, domain.HarvestOptions{})
	if err != nil {
		return nil, err
	}

	created, err := g.CreateLinks(ctx, article, scored)
	if err != nil {
		return nil, err
	}

	return &domain.RelatedHarvestResult{
		PMID:         article.PMID,
		Neighbors:    scored,
		Articles:     articles,
		LinksCreated: created,
	}, nil
}
