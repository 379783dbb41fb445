package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/repository"
)

var _ repository.LinkRepository = (*LinkRepository)(nil)

// LinkRepository stores related-article links in SQLite.
type LinkRepository struct {
	db *sql.DB
}

// CreateLink inserts one canonical link. The UNIQUE (pmid_low, pmid_high)
// constraint turns a repeated pair into a DuplicateEdgeError.
func (r *LinkRepository) CreateLink(ctx context.Context, link domain.RelatedLink) error {
	id := link.LowPMID + "-" + link.HighPMID
	if !link.Canonical() {
		return domain.NewPersistenceError("create link", id, fmt.Errorf("link pair is not canonical"))
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO article_links (pmid_low, pmid_high, score, created_at) VALUES (?, ?, ?, ?)`,
		link.LowPMID, link.HighPMID, link.Score, formatTime(time.Now()))
	if err != nil {
		if isConstraint(err) {
			return domain.NewDuplicateEdgeError(link.LowPMID, link.HighPMID)
		}
		return domain.NewPersistenceError("create link", id, err)
	}
	return nil
}

// ListForPMID returns every link touching pmid, highest score first.
func (r *LinkRepository) ListForPMID(ctx context.Context, pmid string) ([]domain.RelatedLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pmid_low, pmid_high, score, created_at
		FROM article_links
		WHERE pmid_low = ? OR pmid_high = ?
		ORDER BY score DESC, pmid_low, pmid_high`, pmid, pmid)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()

	links := make([]domain.RelatedLink, 0)
	for rows.Next() {
		var (
			l         domain.RelatedLink
			createdAt string
		)
		if err := rows.Scan(&l.LowPMID, &l.HighPMID, &l.Score, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}
