package httpserver

import (
	"time"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/temporal"
)

// Response types for JSON serialization.

type harvestResponse struct {
	Mode           string   `json:"mode"`
	Created        []string `json:"created"`
	AlreadyExisted []string `json:"already_existed"`
	Skipped        []string `json:"skipped,omitempty"`
}

type relatedResponse struct {
	PMID         string           `json:"pmid"`
	Neighbors    []neighborScore  `json:"neighbors"`
	Articles     *harvestResponse `json:"articles,omitempty"`
	LinksCreated int              `json:"links_created"`
}

type neighborScore struct {
	PMID  string  `json:"pmid"`
	Score float64 `json:"score"`
}

type articleResponse struct {
	PMID            string    `json:"pmid"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract,omitempty"`
	Authors         string    `json:"authors,omitempty"`
	Affiliations    string    `json:"affiliations,omitempty"`
	JournalName     string    `json:"journal_name,omitempty"`
	Volume          string    `json:"volume,omitempty"`
	Issue           string    `json:"issue,omitempty"`
	Pages           string    `json:"pages,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	PublicationType string    `json:"publication_type,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	ReviewStatus    string    `json:"review_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type listArticlesResponse struct {
	Articles      []articleResponse `json:"articles"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	TotalCount    int               `json:"total_count"`
}

type linkResponse struct {
	PMID      string    `json:"pmid"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type listLinksResponse struct {
	PMID  string         `json:"pmid"`
	Links []linkResponse `json:"links"`
}

type startWorkflowResponse struct {
	HarvestID  string `json:"harvest_id"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
}

type workflowStatusResponse struct {
	WorkflowID string            `json:"workflow_id"`
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	StartTime  time.Time         `json:"start_time"`
	CloseTime  *time.Time        `json:"close_time,omitempty"`
	Progress   *progressResponse `json:"progress,omitempty"`
}

type workflowResultResponse struct {
	HarvestID       string   `json:"harvest_id"`
	Mode            string   `json:"mode"`
	Created         []string `json:"created"`
	AlreadyExisted  []string `json:"already_existed"`
	Skipped         []string `json:"skipped,omitempty"`
	Expanded        []string `json:"expanded,omitempty"`
	RelatedCreated  []string `json:"related_created,omitempty"`
	LinksCreated    int      `json:"links_created"`
	DurationSeconds float64  `json:"duration_seconds"`
}

type progressResponse struct {
	Phase        string `json:"phase"`
	Created      int    `json:"created"`
	ToExpand     int    `json:"to_expand"`
	Expanded     int    `json:"expanded"`
	LinksCreated int    `json:"links_created"`
}

// Converter functions

func workflowDescriptionToResponse(d *temporal.WorkflowDescription) workflowStatusResponse {
	return workflowStatusResponse{
		WorkflowID: d.WorkflowID,
		RunID:      d.RunID,
		Status:     d.Status,
		StartTime:  d.StartTime,
		CloseTime:  d.CloseTime,
	}
}

func workflowResultToResponse(r *temporal.HarvestWorkflowResult) workflowResultResponse {
	resp := workflowResultResponse{
		HarvestID:       r.HarvestID,
		Mode:            string(r.Mode),
		Created:         r.Created,
		AlreadyExisted:  r.AlreadyExisted,
		Skipped:         r.Skipped,
		Expanded:        r.Expanded,
		RelatedCreated:  r.RelatedCreated,
		LinksCreated:    r.LinksCreated,
		DurationSeconds: r.Duration,
	}
	if resp.Created == nil {
		resp.Created = []string{}
	}
	if resp.AlreadyExisted == nil {
		resp.AlreadyExisted = []string{}
	}
	return resp
}

func harvestResultToResponse(mode domain.HarvestMode, r *domain.HarvestResult) *harvestResponse {
	if r == nil {
		return nil
	}
	resp := &harvestResponse{
		Mode:           string(mode),
		Created:        r.Created,
		AlreadyExisted: r.AlreadyExisted,
		Skipped:        r.Skipped,
	}
	if resp.Created == nil {
		resp.Created = []string{}
	}
	if resp.AlreadyExisted == nil {
		resp.AlreadyExisted = []string{}
	}
	return resp
}

func relatedResultToResponse(r *domain.RelatedHarvestResult) relatedResponse {
	neighbors := make([]neighborScore, len(r.Neighbors))
	for i, n := range r.Neighbors {
		neighbors[i] = neighborScore{PMID: n.PMID, Score: n.Score}
	}
	return relatedResponse{
		PMID:         r.PMID,
		Neighbors:    neighbors,
		Articles:     harvestResultToResponse(domain.HarvestModeRelated, r.Articles),
		LinksCreated: r.LinksCreated,
	}
}

func domainArticleToResponse(a *domain.Article) articleResponse {
	return articleResponse{
		PMID:            a.PMID,
		Title:           a.Title,
		Abstract:        a.Abstract,
		Authors:         a.Authors,
		Affiliations:    a.Affiliations,
		JournalName:     a.JournalName,
		Volume:          a.Volume,
		Issue:           a.Issue,
		Pages:           a.Pages,
		PublicationDate: a.PublicationDate,
		PublicationType: a.PublicationType,
		DOI:             a.DOI,
		ReviewStatus:    string(a.ReviewStatus),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// linksToResponse reports each link from the point of view of pmid.
func linksToResponse(pmid string, links []domain.RelatedLink) listLinksResponse {
	resp := listLinksResponse{PMID: pmid, Links: make([]linkResponse, len(links))}
	for i, l := range links {
		resp.Links[i] = linkResponse{
			PMID:      l.Other(pmid),
			Score:     l.Score,
			CreatedAt: l.CreatedAt,
		}
	}
	return resp
}
