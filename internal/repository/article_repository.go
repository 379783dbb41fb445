package repository

import (
	"context"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

// ArticleRepository stores normalized PubMed articles keyed by PMID.
type ArticleRepository interface {
	// ExistingPMIDs returns the subset of pmids that are stored.
	ExistingPMIDs(ctx context.Context, pmids []string) (map[string]struct{}, error)

	// FindByPMID retrieves one article.
	// Returns domain.ErrNotFound if no article has the PMID.
	FindByPMID(ctx context.Context, pmid string) (*domain.Article, error)

	// Create inserts a new article and sets its timestamps.
	// Returns domain.ErrAlreadyExists if the PMID is taken.
	Create(ctx context.Context, article *domain.Article) error

	// Update replaces every field of a stored article except PMID and CreatedAt.
	// Returns domain.ErrNotFound if the article does not exist.
	Update(ctx context.Context, article *domain.Article) error

	// List returns articles matching the filter, newest first, and the
	// total number of matches regardless of limit and offset.
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error)
}

// ArticleFilter selects articles for List.
type ArticleFilter struct {
	// ReviewStatus restricts results to one MEDLINE citation status.
	ReviewStatus *domain.ReviewStatus

	// Journal restricts results to a journal name, case-insensitively.
	Journal string

	Limit  int
	Offset int
}

// Validate normalizes pagination and checks the status filter.
func (f *ArticleFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	if f.ReviewStatus != nil && *f.ReviewStatus == "" {
		return domain.NewValidationError("review_status", "review status cannot be empty")
	}
	return nil
}

// LinkRepository stores related-article links. A link is identified by its
// canonical (LowPMID, HighPMID) pair.
type LinkRepository interface {
	// CreateLink stores a link.
	// Returns domain.ErrDuplicateEdge if the pair is already stored.
	CreateLink(ctx context.Context, link domain.RelatedLink) error

	// ListForPMID returns every link touching pmid, highest score first.
	ListForPMID(ctx context.Context, pmid string) ([]domain.RelatedLink, error)
}
