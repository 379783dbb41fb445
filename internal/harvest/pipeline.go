package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/dedup"
	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/normalize"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

// Config controls pipeline behaviour.
type Config struct {
	// SkipMalformed drops documents that fail normalization instead of
	// aborting the harvest. Dropped ids are reported in HarvestResult.Skipped.
	SkipMalformed bool
}

// Pipeline harvests PubMed articles into an ArticleStore.
// It is safe for concurrent use if its dependencies are.
type Pipeline struct {
	cfg      Config
	searcher Searcher
	fetcher  Fetcher
	store    ArticleStore
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewPipeline creates a Pipeline. metrics may be nil.
func NewPipeline(cfg Config, searcher Searcher, fetcher Fetcher, store ArticleStore, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		searcher: searcher,
		fetcher:  fetcher,
		store:    store,
		logger:   logger.With().Str("component", "harvest_pipeline").Logger(),
		metrics:  metrics,
	}
}

// HarvestFromSearch searches PubMed for query and stores every result that
// is not stored yet, or every result when opts.Reload is set.
func (p *Pipeline) HarvestFromSearch(ctx context.Context, query string, opts domain.HarvestOptions) (*domain.HarvestResult, error) {
	start := time.Now()
	mode := string(domain.HarvestModeSearch)
	p.metrics.RecordHarvestStarted(mode)

	candidates, err := p.search(ctx, query)
	if err != nil {
		p.metrics.RecordHarvestFailed(mode, kindLabel(err), time.Since(start))
		return nil, err
	}
	p.logger.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("search completed")

	result, err := p.harvest(ctx, candidates, opts)
	if err != nil {
		p.metrics.RecordHarvestFailed(mode, kindLabel(err), time.Since(start))
		return nil, err
	}
	p.metrics.RecordHarvestCompleted(mode, len(candidates), time.Since(start))
	return result, nil
}

// CreateArticlesFromIDs stores the articles for pmids, skipping stored ones
// unless opts.Reload is set.
func (p *Pipeline) CreateArticlesFromIDs(ctx context.Context, pmids []string, opts domain.HarvestOptions) (*domain.HarvestResult, error) {
	start := time.Now()
	mode := string(domain.HarvestModeIDs)
	p.metrics.RecordHarvestStarted(mode)

	result, err := p.harvest(ctx, pmids, opts)
	if err != nil {
		p.metrics.RecordHarvestFailed(mode, kindLabel(err), time.Since(start))
		return nil, err
	}
	p.metrics.RecordHarvestCompleted(mode, len(pmids), time.Since(start))
	return result, nil
}

// InstancesFromSearch returns the normalized articles matching query
// without storing them.
func (p *Pipeline) InstancesFromSearch(ctx context.Context, query string) ([]*domain.Article, error) {
	candidates, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*domain.Article{}, nil
	}

	docs, err := p.fetch(ctx, dedup.Unique(candidates))
	if err != nil {
		return nil, err
	}

	articles := make([]*domain.Article, 0, len(docs))
	for _, doc := range docs {
		article, err := p.normalize(doc)
		if err != nil {
			return nil, err
		}
		if article != nil {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// ArticleFromID fetches and normalizes one article without storing it.
// It returns a NotFoundError when PubMed has no document for pmid.
func (p *Pipeline) ArticleFromID(ctx context.Context, pmid string) (*domain.Article, error) {
	docs, err := p.fetch(ctx, []string{pmid})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.NewNotFoundError("pubmed article", pmid)
	}
	return normalize.Normalize(docs[0])
}

// Reprocess rebuilds a stored article from its raw XML and fully replaces
// the stored fields. PubMed is not contacted.
func (p *Pipeline) Reprocess(ctx context.Context, pmid string) (*domain.Article, error) {
	stored, err := p.store.FindByPMID(ctx, pmid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, asPersistence("find article", pmid, err)
	}
	if stored.RawXML == "" {
		return nil, domain.NewStructuralError("reprocess", pmid, "stored article has no raw xml")
	}

	article, err := normalize.Renormalize(stored.RawXML)
	if err != nil {
		return nil, err
	}
	if article.PMID != stored.PMID {
		return nil, domain.NewStructuralError("reprocess", pmid, "raw xml holds pubmed id "+article.PMID)
	}

	article.CreatedAt = stored.CreatedAt
	if err := p.store.Update(ctx, article); err != nil {
		return nil, asPersistence("update article", pmid, err)
	}
	p.metrics.RecordArticleUpdated()
	p.logger.Info().Str("pmid", pmid).Msg("article reprocessed from raw xml")
	return article, nil
}

func (p *Pipeline) harvest(ctx context.Context, candidates []string, opts domain.HarvestOptions) (*domain.HarvestResult, error) {
	fetchSet := candidates
	if !opts.Reload {
		missing, err := dedup.Missing(ctx, candidates, p.store)
		if err != nil {
			return nil, asPersistence("dedup", "", err)
		}
		fetchSet = missing
	}

	result := &domain.HarvestResult{
		Created:        dedup.Unique(fetchSet),
		AlreadyExisted: dedup.Subtract(candidates, fetchSet),
	}
	p.metrics.RecordArticlesExisting(len(result.AlreadyExisted))

	if len(result.Created) == 0 {
		return result, nil
	}

	p.logger.Info().Strs("pmids", result.Created).Msg("fetching ids from pubmed")
	docs, err := p.fetch(ctx, result.Created)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		article, err := p.normalize(doc)
		if err != nil {
			return nil, err
		}
		if article == nil {
			if id := normalize.Text(doc, normalize.SelPMID); id != "" {
				result.Skipped = append(result.Skipped, id)
			}
			continue
		}
		if err := p.upsert(ctx, article); err != nil {
			return nil, err
		}
	}

	if len(result.Skipped) > 0 {
		result.Created = dedup.Subtract(result.Created, result.Skipped)
	}
	return result, nil
}

// normalize returns a nil article without error when the document is
// malformed and SkipMalformed is set.
func (p *Pipeline) normalize(doc *normalize.Document) (*domain.Article, error) {
	article, err := normalize.Normalize(doc)
	if err == nil {
		return article, nil
	}
	if !p.cfg.SkipMalformed || !errors.Is(err, domain.ErrStructural) {
		return nil, err
	}

	p.logger.Warn().Err(err).Msg("skipping malformed article")
	p.metrics.RecordArticleMalformed()
	return nil, nil
}

// upsert fully replaces a stored article or creates it.
func (p *Pipeline) upsert(ctx context.Context, article *domain.Article) error {
	if u, ok := p.store.(Upserter); ok {
		created, err := u.Upsert(ctx, article)
		if err != nil {
			return asPersistence("upsert article", article.PMID, err)
		}
		if created {
			p.metrics.RecordArticleCreated()
		} else {
			p.metrics.RecordArticleUpdated()
		}
		return nil
	}

	existing, err := p.store.FindByPMID(ctx, article.PMID)
	switch {
	case err == nil:
		article.CreatedAt = existing.CreatedAt
		if err := p.store.Update(ctx, article); err != nil {
			return asPersistence("update article", article.PMID, err)
		}
		p.metrics.RecordArticleUpdated()
	case errors.Is(err, domain.ErrNotFound):
		if err := p.store.Create(ctx, article); err != nil {
			return asPersistence("create article", article.PMID, err)
		}
		p.metrics.RecordArticleCreated()
	default:
		return asPersistence("find article", article.PMID, err)
	}
	return nil
}

func (p *Pipeline) search(ctx context.Context, query string) ([]string, error) {
	ids, err := p.searcher.Search(ctx, query)
	if err != nil {
		return nil, asConnection("esearch", err)
	}
	return ids, nil
}

func (p *Pipeline) fetch(ctx context.Context, pmids []string) ([]*normalize.Document, error) {
	docs, err := p.fetcher.Fetch(ctx, pmids)
	if err != nil {
		return nil, asConnection("efetch", err)
	}
	return docs, nil
}

// asConnection wraps err as a connection error unless it already is one.
func asConnection(op string, err error) error {
	if errors.Is(err, domain.ErrConnection) {
		return err
	}
	return domain.NewConnectionError(op, err)
}

// asPersistence wraps err as a persistence error unless it already carries
// a harvest error kind.
func asPersistence(op, id string, err error) error {
	if domain.ErrorKind(err) != nil {
		return err
	}
	return domain.NewPersistenceError(op, id, err)
}

func kindLabel(err error) string {
	if kind := domain.ErrorKind(err); kind != nil {
		return kind.Error()
	}
	return "other"
}
