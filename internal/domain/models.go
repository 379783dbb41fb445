// Package domain provides domain models and error types for the PubMed harvester.
package domain

// ReviewStatus is the MedlineCitation Status attribute reported by PubMed.
// It reflects how far NLM curation has progressed for a citation. Values
// outside the known set are stored verbatim.
type ReviewStatus string

const (
	ReviewStatusMedline          ReviewStatus = "MEDLINE"
	ReviewStatusPubMedNotMedline ReviewStatus = "PubMed-not-MEDLINE"
	ReviewStatusInDataReview     ReviewStatus = "In-Data-Review"
	ReviewStatusInProcess        ReviewStatus = "In-Process"
	ReviewStatusPublisher        ReviewStatus = "Publisher"
	ReviewStatusCompleted        ReviewStatus = "Completed"
	ReviewStatusOldMedline       ReviewStatus = "OLDMEDLINE"
)

// IsIndexed returns true if the citation has been reviewed and indexed with MeSH terms.
func (s ReviewStatus) IsIndexed() bool {
	switch s {
	case ReviewStatusMedline, ReviewStatusOldMedline, ReviewStatusCompleted:
		return true
	default:
		return false
	}
}

// HarvestMode identifies how a harvest run selected its candidate identifiers.
type HarvestMode string

const (
	HarvestModeSearch  HarvestMode = "search"
	HarvestModeIDs     HarvestMode = "ids"
	HarvestModeRelated HarvestMode = "related"
)
