package harvest

import (
	"context"

	"github.com/helixir/pubmed-harvester/internal/dedup"
	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/normalize"
	"github.com/helixir/pubmed-harvester/internal/papersources/pubmed"
)

// Searcher resolves a query to candidate PubMed ids.
type Searcher interface {
	Search(ctx context.Context, term string) ([]string, error)
}

// Fetcher retrieves the full article documents for a batch of ids.
type Fetcher interface {
	Fetch(ctx context.Context, pmids []string) ([]*normalize.Document, error)
}

// LinkLookup returns the ELink neighbor_score response for one id.
type LinkLookup interface {
	LookupLinks(ctx context.Context, pmid string) (*pubmed.ELinkResult, error)
}

// ArticleStore persists normalized articles. FindByPMID returns an error
// matching domain.ErrNotFound when the article is absent.
type ArticleStore interface {
	dedup.ExistenceChecker
	FindByPMID(ctx context.Context, pmid string) (*domain.Article, error)
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
}

// Upserter is implemented by stores that create or replace an article in one
// atomic step. It reports whether the article was created.
type Upserter interface {
	Upsert(ctx context.Context, article *domain.Article) (created bool, err error)
}

// LinkStore persists related-article links. CreateLink returns an error
// matching domain.ErrDuplicateEdge when the canonical pair is already stored.
type LinkStore interface {
	CreateLink(ctx context.Context, link domain.RelatedLink) error
}

// IDHarvester creates the articles for a list of ids.
type IDHarvester interface {
	CreateArticlesFromIDs(ctx context.Context, pmids []string, opts domain.HarvestOptions) (*domain.HarvestResult, error)
}

// Source is the full E-utilities surface used by the harvester.
type Source interface {
	Searcher
	Fetcher
	LinkLookup
}

var _ Source = (*pubmed.Client)(nil)
