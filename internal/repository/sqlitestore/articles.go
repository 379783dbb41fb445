package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/repository"
)

var _ repository.ArticleRepository = (*ArticleRepository)(nil)

// existingBatchSize bounds the bound parameters of one IN query.
const existingBatchSize = 500

const articleColumns = `pmid, publication_date, journal_name, volume, issue, title,
	pages, abstract, authors, affiliations, publication_type, doi,
	review_status, raw_xml, created_at, updated_at`

// ArticleRepository stores articles in SQLite.
type ArticleRepository struct {
	db *sql.DB
}

// ExistingPMIDs returns the subset of pmids present in the articles table.
func (r *ArticleRepository) ExistingPMIDs(ctx context.Context, pmids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(pmids))

	for start := 0; start < len(pmids); start += existingBatchSize {
		end := min(start+existingBatchSize, len(pmids))
		batch := pmids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := r.db.QueryContext(ctx, `SELECT pmid FROM articles WHERE pmid IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying existing pmids: %w", err)
		}
		for rows.Next() {
			var pmid string
			if err := rows.Scan(&pmid); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning pmid: %w", err)
			}
			existing[pmid] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating pmids: %w", err)
		}
	}
	return existing, nil
}

// FindByPMID retrieves an article by its PubMed id.
func (r *ArticleRepository) FindByPMID(ctx context.Context, pmid string) (*domain.Article, error) {
	if pmid == "" {
		return nil, domain.NewValidationError("pmid", "pmid is required")
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE pmid = ?`, pmid)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", pmid)
		}
		return nil, fmt.Errorf("getting article: %w", err)
	}
	return article, nil
}

// Create inserts a new article and sets its timestamps.
func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if err := validate(article); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isConstraint(err) {
			return domain.NewAlreadyExistsError("article", article.PMID)
		}
		return fmt.Errorf("creating article: %w", err)
	}

	article.CreatedAt = now
	article.UpdatedAt = now
	return nil
}

// Update overwrites every mutable field of a stored article.
func (r *ArticleRepository) Update(ctx context.Context, article *domain.Article) error {
	if err := validate(article); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE articles SET
			publication_date = ?,
			journal_name = ?,
			volume = ?,
			issue = ?,
			title = ?,
			pages = ?,
			abstract = ?,
			authors = ?,
			affiliations = ?,
			publication_type = ?,
			doi = ?,
			review_status = ?,
			raw_xml = ?,
			updated_at = ?
		WHERE pmid = ?`,
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
		formatTime(now),
		article.PMID,
	)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("article", article.PMID)
	}

	var createdAt string
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM articles WHERE pmid = ?`, article.PMID).Scan(&createdAt); err != nil {
		return fmt.Errorf("reading article timestamps: %w", err)
	}
	if article.CreatedAt, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	article.UpdatedAt = now
	return nil
}

// List returns articles matching the filter, newest first.
func (r *ArticleRepository) List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var (
		conditions []string
		args       []any
	)
	if filter.ReviewStatus != nil {
		conditions = append(conditions, "review_status = ?")
		args = append(args, string(*filter.ReviewStatus))
	}
	if filter.Journal != "" {
		conditions = append(conditions, "LOWER(journal_name) = LOWER(?)")
		args = append(args, filter.Journal)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting articles: %w", err)
	}

	query := "SELECT " + articleColumns + " FROM articles " + where +
		" ORDER BY created_at DESC, pmid LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating articles: %w", err)
	}
	return articles, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		a                    domain.Article
		doi                  sql.NullString
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&a.PMID, &a.PublicationDate, &a.JournalName, &a.Volume, &a.Issue, &a.Title,
		&a.Pages, &a.Abstract, &a.Authors, &a.Affiliations, &a.PublicationType, &doi,
		&status, &a.RawXML, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.DOI = doi.String
	a.ReviewStatus = domain.ReviewStatus(status)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &a, nil
}

func validate(article *domain.Article) error {
	if article == nil {
		return domain.NewValidationError("article", "article cannot be nil")
	}
	if article.PMID == "" {
		return domain.NewValidationError("pmid", "pmid is required")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
