package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type mockHarvester struct {
	query  string
	pmids  []string
	reload bool
	result *domain.HarvestResult
	err    error
}

func (m *mockHarvester) HarvestFromSearch(_ context.Context, query string, opts domain.HarvestOptions) (*domain.HarvestResult, error) {
	m.query = query
	m.reload = opts.Reload
	return m.result, m.err
}

func (m *mockHarvester) CreateArticlesFromIDs(_ context.Context, pmids []string, opts domain.HarvestOptions) (*domain.HarvestResult, error) {
	m.pmids = pmids
	m.reload = opts.Reload
	return m.result, m.err
}

type mockRelated struct {
	article *domain.Article
	result  *domain.RelatedHarvestResult
	err     error
}

func (m *mockRelated) HarvestRelated(_ context.Context, article *domain.Article) (*domain.RelatedHarvestResult, error) {
	m.article = article
	return m.result, m.err
}

type mockFinder struct {
	articles map[string]*domain.Article
}

func (m *mockFinder) FindByPMID(_ context.Context, pmid string) (*domain.Article, error) {
	if a, ok := m.articles[pmid]; ok {
		return a, nil
	}
	return nil, domain.NewNotFoundError("article", pmid)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHarvestActivities_HarvestSearch(t *testing.T) {
	t.Run("returns pipeline result", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		h := &mockHarvester{result: &domain.HarvestResult{
			Created:        []string{"1", "2"},
			AlreadyExisted: []string{"3"},
		}}
		act := NewHarvestActivities(h, nil, nil)
		env.RegisterActivity(act.HarvestSearch)

		val, err := env.ExecuteActivity(act.HarvestSearch, HarvestInput{HarvestID: "h1", Query: "crispr", Reload: true})
		require.NoError(t, err)

		var out HarvestOutput
		require.NoError(t, val.Get(&out))
		assert.Equal(t, []string{"1", "2"}, out.Created)
		assert.Equal(t, []string{"3"}, out.AlreadyExisted)
		assert.Equal(t, "crispr", h.query)
		assert.True(t, h.reload)
		assert.False(t, out.Retried)
	})

	t.Run("connection error stays retryable", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		h := &mockHarvester{err: domain.NewConnectionError("esearch", errors.New("timeout"))}
		act := NewHarvestActivities(h, nil, nil)
		env.RegisterActivity(act.HarvestSearch)

		_, err := env.ExecuteActivity(act.HarvestSearch, HarvestInput{Query: "crispr"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")

		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) {
			assert.False(t, appErr.NonRetryable())
		}
	})
}

func TestHarvestActivities_HarvestIDs(t *testing.T) {
	t.Run("passes ids through", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		h := &mockHarvester{result: &domain.HarvestResult{Created: []string{"7"}, Skipped: []string{"8"}}}
		act := NewHarvestActivities(h, nil, nil)
		env.RegisterActivity(act.HarvestIDs)

		val, err := env.ExecuteActivity(act.HarvestIDs, HarvestInput{PMIDs: []string{"7", "8"}})
		require.NoError(t, err)

		var out HarvestOutput
		require.NoError(t, val.Get(&out))
		assert.Equal(t, []string{"7"}, out.Created)
		assert.Equal(t, []string{"8"}, out.Skipped)
		assert.Equal(t, []string{"7", "8"}, h.pmids)
	})

	t.Run("structural error is non-retryable", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		h := &mockHarvester{err: domain.NewStructuralError("normalize", "7", "missing PMID")}
		act := NewHarvestActivities(h, nil, nil)
		env.RegisterActivity(act.HarvestIDs)

		_, err := env.ExecuteActivity(act.HarvestIDs, HarvestInput{PMIDs: []string{"7"}})
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr))
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, ErrTypeStructural, appErr.Type())
	})
}

func TestHarvestActivities_ExpandRelated(t *testing.T) {
	article := &domain.Article{PMID: "100"}

	t.Run("expands stored article", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		rel := &mockRelated{result: &domain.RelatedHarvestResult{
			PMID:         "100",
			Neighbors:    []domain.ScoredID{{PMID: "200", Score: 50}, {PMID: "300", Score: 40}},
			Articles:     &domain.HarvestResult{Created: []string{"200"}},
			LinksCreated: 2,
		}}
		finder := &mockFinder{articles: map[string]*domain.Article{"100": article}}
		act := NewHarvestActivities(nil, rel, finder)
		env.RegisterActivity(act.ExpandRelated)

		val, err := env.ExecuteActivity(act.ExpandRelated, ExpandRelatedInput{HarvestID: "h1", PMID: "100"})
		require.NoError(t, err)

		var out ExpandRelatedOutput
		require.NoError(t, val.Get(&out))
		assert.Equal(t, 2, out.Neighbors)
		assert.Equal(t, 2, out.LinksCreated)
		assert.Equal(t, []string{"200"}, out.Created)
		assert.Equal(t, "100", rel.article.PMID)
	})

	t.Run("missing article is non-retryable", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		act := NewHarvestActivities(nil, &mockRelated{}, &mockFinder{})
		env.RegisterActivity(act.ExpandRelated)

		_, err := env.ExecuteActivity(act.ExpandRelated, ExpandRelatedInput{PMID: "404"})
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr))
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, ErrTypeNotFound, appErr.Type())
	})
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))

	persist := domain.NewPersistenceError("create link", "1-2", plain)
	assert.Equal(t, error(persist), classify(persist))

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(classify(domain.NewValidationError("pmid", "bad")), &appErr))
	assert.Equal(t, ErrTypeInvalidInput, appErr.Type())
}
