package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

func TestPgLinkRepository_CreateLink(t *testing.T) {
	ctx := context.Background()
	link := domain.RelatedLink{LowPMID: "3", HighPMID: "5", Score: 40.5}

	t.Run("inserts link", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO article_links").
			WithArgs("3", "5", 40.5, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewPgLinkRepository(mock).CreateLink(ctx, link))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a duplicate edge", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO article_links").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "article_links_pair_key"})

		err = NewPgLinkRepository(mock).CreateLink(ctx, link)
		assert.ErrorIs(t, err, domain.ErrDuplicateEdge)
		assert.Contains(t, err.Error(), "pubmed id 3 already has a link to pubmed id 5")
	})

	t.Run("other failures are persistence errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO article_links").
			WillReturnError(&pgconn.PgError{Code: "23514"})

		err = NewPgLinkRepository(mock).CreateLink(ctx, link)
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.NotErrorIs(t, err, domain.ErrDuplicateEdge)
	})

	t.Run("non canonical pair is rejected", func(t *testing.T) {
		err := NewPgLinkRepository(nil).CreateLink(ctx, domain.RelatedLink{LowPMID: "5", HighPMID: "3"})
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})
}

func TestPgLinkRepository_ListForPMID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns links", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		ts := time.Now().UTC()
		mock.ExpectQuery("FROM article_links").
			WithArgs("5").
			WillReturnRows(pgxmock.NewRows([]string{"pmid_low", "pmid_high", "score", "created_at"}).
				AddRow("5", "10", 90.0, ts).
				AddRow("3", "5", 40.5, ts))

		links, err := NewPgLinkRepository(mock).ListForPMID(ctx, "5")
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "10", links[0].Other("5"))
		assert.Equal(t, "3", links[1].Other("5"))
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))

		_, err = NewPgLinkRepository(mock).ListForPMID(ctx, "5")
		assert.ErrorContains(t, err, "boom")
	})
}
