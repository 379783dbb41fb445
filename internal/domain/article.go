package domain

import (
	"errors"
	"strings"
	"time"
)

// Article is the canonical, storable representation of one PubMed article.
// PMID is immutable once assigned; every other field is fully replaced on update.
type Article struct {
	PMID            string       `json:"pmid"`
	PublicationDate string       `json:"publication_date"`
	JournalName     string       `json:"journal_name"`
	Volume          string       `json:"volume"`
	Issue           string       `json:"issue"`
	Title           string       `json:"title"`
	Pages           string       `json:"pages"`
	Abstract        string       `json:"abstract"`
	Authors         string       `json:"authors"`
	Affiliations    string       `json:"affiliations"`
	PublicationType string       `json:"publication_type"`
	DOI             string       `json:"doi,omitempty"`
	ReviewStatus    ReviewStatus `json:"review_status"`
	RawXML          string       `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ScoredID is one neighbor returned by an ELink neighbor_score lookup.
type ScoredID struct {
	PMID  string  `json:"pmid"`
	Score float64 `json:"score"`
}

// ErrSelfLink is returned when a link would connect an article to itself.
var ErrSelfLink = errors.New("pubmed id cannot be linked to itself")

// RelatedLink is an undirected similarity edge between two articles.
// LowPMID always sorts numerically before HighPMID.
type RelatedLink struct {
	LowPMID   string    `json:"pmid_low"`
	HighPMID  string    `json:"pmid_high"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRelatedLink builds the canonical link between two articles.
// The argument order does not matter: (a, b) and (b, a) yield the same link.
// Only identical identifiers make a self-link; "0100" and "100" are distinct.
func NewRelatedLink(a, b string, score float64) (RelatedLink, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return RelatedLink{}, ErrSelfLink
	}
	low, high := a, b
	if compareLinkEnds(a, b) > 0 {
		low, high = b, a
	}
	return RelatedLink{LowPMID: low, HighPMID: high, Score: score}, nil
}

// Canonical reports whether the link endpoints are distinct and ordered.
func (l RelatedLink) Canonical() bool {
	return compareLinkEnds(l.LowPMID, l.HighPMID) < 0
}

// compareLinkEnds orders ids numerically and breaks ties between ids that
// differ only in leading zeros by their text.
func compareLinkEnds(a, b string) int {
	if c := ComparePMIDs(a, b); c != 0 {
		return c
	}
	return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Other returns the endpoint of the link opposite to pmid.
func (l RelatedLink) Other(pmid string) string {
	if l.LowPMID == pmid {
		return l.HighPMID
	}
	return l.LowPMID
}

// ComparePMIDs orders two PubMed ids numerically. Ids made of digits are
// compared by magnitude without overflow; any other id falls back to a
// plain string comparison.
func ComparePMIDs(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !isDigits(a) || !isDigits(b) {
		return strings.Compare(a, b)
	}
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// HarvestOptions controls a single harvest invocation.
type HarvestOptions struct {
	// Reload fetches every candidate, including those already stored.
	Reload bool `json:"reload"`
}

// HarvestResult reports one harvest invocation.
type HarvestResult struct {
	// Created lists the identifiers that were fetched and upserted.
	Created []string `json:"created"`
	// AlreadyExisted lists candidates that were skipped because they were stored.
	AlreadyExisted []string `json:"already_existed"`
	// Skipped lists fetched documents dropped as malformed.
	Skipped []string `json:"skipped,omitempty"`
}

// RelatedHarvestResult reports one related-article expansion.
type RelatedHarvestResult struct {
	PMID         string         `json:"pmid"`
	Neighbors    []ScoredID     `json:"neighbors"`
	Articles     *HarvestResult `json:"articles"`
	LinksCreated int            `json:"links_created"`
}
