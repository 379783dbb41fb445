package httpserver

import (
	"net/http"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/repository"
)

// listArticles handles GET /articles.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.ArticleFilter{
		Journal: r.URL.Query().Get("journal"),
		Limit:   limit,
		Offset:  offset,
	}
	if statusParam := r.URL.Query().Get("review_status"); statusParam != "" {
		status := domain.ReviewStatus(statusParam)
		filter.ReviewStatus = &status
	}

	articles, totalCount, err := s.deps.Articles.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]articleResponse, len(articles))
	for i, a := range articles {
		responses[i] = domainArticleToResponse(a)
	}

	writeJSON(w, http.StatusOK, listArticlesResponse{
		Articles:      responses,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getArticle handles GET /articles/{pmid}.
func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	pmid, ok := s.parsePMID(w, r)
	if !ok {
		return
	}

	article, err := s.deps.Articles.FindByPMID(r.Context(), pmid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// listArticleLinks handles GET /articles/{pmid}/links.
func (s *Server) listArticleLinks(w http.ResponseWriter, r *http.Request) {
	pmid, ok := s.parsePMID(w, r)
	if !ok {
		return
	}

	links, err := s.deps.Links.ListForPMID(r.Context(), pmid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linksToResponse(pmid, links))
}

// harvestRelated handles POST /articles/{pmid}/related. The article must
// already be stored.
func (s *Server) harvestRelated(w http.ResponseWriter, r *http.Request) {
	if s.deps.Related == nil {
		writeError(w, http.StatusServiceUnavailable, "related harvesting is not configured")
		return
	}

	pmid, ok := s.parsePMID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	article, err := s.deps.Articles.FindByPMID(ctx, pmid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := s.deps.Related.HarvestRelated(ctx, article)
	if err != nil {
		s.logger.Error().Err(err).Str("pmid", pmid).Msg("related harvest failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relatedResultToResponse(res))
}
