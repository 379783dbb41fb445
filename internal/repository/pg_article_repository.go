package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

// Compile-time interface verification.
var _ ArticleRepository = (*PgArticleRepository)(nil)

const articleColumns = `pmid, publication_date, journal_name, volume, issue, title,
			pages, abstract, authors, affiliations, publication_type, doi,
			review_status, raw_xml, created_at, updated_at`

// PgArticleRepository is a PostgreSQL implementation of ArticleRepository.
type PgArticleRepository struct {
	db DBTX
}

// NewPgArticleRepository creates a new PostgreSQL article repository.
func NewPgArticleRepository(db DBTX) *PgArticleRepository {
	return &PgArticleRepository{db: db}
}

// ExistingPMIDs returns the subset of pmids present in the articles table.
func (r *PgArticleRepository) ExistingPMIDs(ctx context.Context, pmids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(pmids))
	if len(pmids) == 0 {
		return existing, nil
	}

	rows, err := r.db.Query(ctx, `SELECT pmid FROM articles WHERE pmid = ANY($1)`, pmids)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing pmids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pmid string
		if err := rows.Scan(&pmid); err != nil {
			return nil, fmt.Errorf("failed to scan pmid: %w", err)
		}
		existing[pmid] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pmids: %w", err)
	}

	return existing, nil
}

// FindByPMID retrieves an article by its PubMed id.
func (r *PgArticleRepository) FindByPMID(ctx context.Context, pmid string) (*domain.Article, error) {
	if pmid == "" {
		return nil, domain.NewValidationError("pmid", "pmid is required")
	}

	query := `SELECT ` + articleColumns + ` FROM articles WHERE pmid = $1`

	article, err := scanArticle(r.db.QueryRow(ctx, query, pmid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", pmid)
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

// Create inserts a new article.
func (r *PgArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if err := validateArticle(article); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		article.PMID,
		article.PublicationDate,
		article.JournalName,
		article.Volume,
		article.Issue,
		article.Title,
		article.Pages,
		article.Abstract,
		article.Authors,
		article.Affiliations,
		article.PublicationType,
		nullString(article.DOI),
		string(article.ReviewStatus),
		article.RawXML,
		now,
		now,
	).Scan(&article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("article", article.PMID)
		}
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// Update overwrites every mutable field of a stored article.
func (r *PgArticleRepository) Update(ctx context.Context, article *domain.Article) error {
	if err := validateArticle(article); err != nil {
		return err
	}

	query := `
		UPDATE articles SET
			publication_date = $2,
			journal_name = $3,
			volume = $4,
			issue = $5,
			title = $6,
			pages = $7,
			abstract = $8,
			authors = $9,
			affiliations = $10,
			publication_type = $11,
			doi = $12,
			review_status = $13,
			raw_xml = $14,
			updated_at = $15
		WHERE pmid = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		article.PMID,
		article.PublicationDate,
		article.JournalName,
		article.Volume,
		article.Issue,
		article.Title,
		article.Pages,
		article.Abstract,
		article.Authors,
		article.Affiliations,
		article.PublicationType,
		nullString(article.DOI),
		string(article.ReviewStatus),
		article.RawXML,
		time.Now().UTC(),
	).Scan(&article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("article", article.PMID)
		}
		return fmt.Errorf("failed to update article: %w", err)
	}

	return nil
}

// transactor is satisfied by *database.DB.
type transactor interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Upsert creates article or fully replaces the stored row, keeping its
// created_at. It reports whether the article was created. On a *database.DB
// the read and the write share one transaction with the row locked.
func (r *PgArticleRepository) Upsert(ctx context.Context, article *domain.Article) (bool, error) {
	t, ok := r.db.(transactor)
	if !ok {
		return r.upsert(ctx, article)
	}

	var created bool
	err := t.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = NewPgArticleRepository(tx).upsert(ctx, article)
		return err
	})
	return created, err
}

func (r *PgArticleRepository) upsert(ctx context.Context, article *domain.Article) (bool, error) {
	if err := validateArticle(article); err != nil {
		return false, err
	}

	var createdAt time.Time
	err := r.db.QueryRow(ctx, `SELECT created_at FROM articles WHERE pmid = $1 FOR UPDATE`, article.PMID).Scan(&createdAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, r.Create(ctx, article)
	case err != nil:
		return false, fmt.Errorf("failed to lock article: %w", err)
	}

	article.CreatedAt = createdAt
	return false, r.Update(ctx, article)
}

// List retrieves articles matching the filter criteria.
func (r *PgArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.ReviewStatus != nil {
		conditions = append(conditions, fmt.Sprintf("review_status = $%d", argIndex))
		args = append(args, string(*filter.ReviewStatus))
		argIndex++
	}

	if filter.Journal != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(journal_name) = LOWER($%d)", argIndex))
		args = append(args, filter.Journal)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM articles
		%s
		ORDER BY created_at DESC, pmid
		LIMIT $%d OFFSET $%d`,
		articleColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, totalCount, nil
}

func validateArticle(article *domain.Article) error {
	if article == nil {
		return domain.NewValidationError("article", "article cannot be nil")
	}
	if article.PMID == "" {
		return domain.NewValidationError("pmid", "pmid is required")
	}
	return nil
}

// scanArticle scans one row in articleColumns order. pgx.Rows satisfies
// pgx.Row, so it serves both QueryRow and Query results.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		a      domain.Article
		doi    *string
		status string
	)
	err := row.Scan(
		&a.PMID, &a.PublicationDate, &a.JournalName, &a.Volume, &a.Issue, &a.Title,
		&a.Pages, &a.Abstract, &a.Authors, &a.Affiliations, &a.PublicationType, &doi,
		&status, &a.RawXML, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if doi != nil {
		a.DOI = *doi
	}
	a.ReviewStatus = domain.ReviewStatus(status)
	return &a, nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
