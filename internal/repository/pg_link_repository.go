package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

var _ LinkRepository = (*PgLinkRepository)(nil)

// PgLinkRepository is a PostgreSQL implementation of LinkRepository backed
// by the article_links table and its unique (pmid_low, pmid_high) constraint.
type PgLinkRepository struct {
	db DBTX
}

// NewPgLinkRepository creates a new PostgreSQL link repository.
func NewPgLinkRepository(db DBTX) *PgLinkRepository {
	return &PgLinkRepository{db: db}
}

// CreateLink inserts one canonical link. A unique violation on the pair
// becomes a DuplicateEdgeError; every other failure is a PersistenceError.
func (r *PgLinkRepository) CreateLink(ctx context.Context, link domain.RelatedLink) error {
	if !link.Canonical() {
		return domain.NewPersistenceError("create link", link.LowPMID+"-"+link.HighPMID,
			fmt.Errorf("link pair is not canonical"))
	}

	query := `
		INSERT INTO article_links (pmid_low, pmid_high, score, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, link.LowPMID, link.HighPMID, link.Score, time.Now().UTC())
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewDuplicateEdgeError(link.LowPMID, link.HighPMID)
		}
		return domain.NewPersistenceError("create link", link.LowPMID+"-"+link.HighPMID, err)
	}
	return nil
}

// ListForPMID returns every link touching pmid, highest score first.
func (r *PgLinkRepository) ListForPMID(ctx context.Context, pmid string) ([]domain.RelatedLink, error) {
	query := `
		SELECT pmid_low, pmid_high, score, created_at
		FROM article_links
		WHERE pmid_low = $1 OR pmid_high = $1
		ORDER BY score DESC, pmid_low, pmid_high`

	rows, err := r.db.Query(ctx, query, pmid)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]domain.RelatedLink, 0)
	for rows.Next() {
		var l domain.RelatedLink
		if err := rows.Scan(&l.LowPMID, &l.HighPMID, &l.Score, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}
