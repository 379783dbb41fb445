package httpserver

import (
	"net/http"
	"strings"
)

// previewRequest is the JSON request body for a search preview.
type previewRequest struct {
	Query string `json:"query" validate:"required,max=4096"`
}

// previewSearch handles POST /pubmed/search. The matching articles are
// fetched and normalized but not stored.
func (s *Server) previewSearch(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	articles, err := s.deps.Harvester.InstancesFromSearch(r.Context(), strings.TrimSpace(req.Query))
	if err != nil {
		s.logger.Error().Err(err).Str("query", req.Query).Msg("search preview failed")
		writeDomainError(w, err)
		return
	}

	resp := listArticlesResponse{
		Articles:   make([]articleResponse, len(articles)),
		TotalCount: len(articles),
	}
	for i, a := range articles {
		resp.Articles[i] = domainArticleToResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// fetchPubMedArticle handles GET /pubmed/{pmid}. The article is fetched from
// PubMed and normalized but not stored.
func (s *Server) fetchPubMedArticle(w http.ResponseWriter, r *http.Request) {
	pmid, ok := s.parsePMID(w, r)
	if !ok {
		return
	}

	article, err := s.deps.Harvester.ArticleFromID(r.Context(), pmid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// reprocessArticle handles POST /articles/{pmid}/reprocess.
func (s *Server) reprocessArticle(w http.ResponseWriter, r *http.Request) {
	pmid, ok := s.parsePMID(w, r)
	if !ok {
		return
	}

	article, err := s.deps.Harvester.Reprocess(r.Context(), pmid)
	if err != nil {
		s.logger.Error().Err(err).Str("pmid", pmid).Msg("reprocess failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}
