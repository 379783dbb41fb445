// Package activities provides Temporal activity implementations for the
// PubMed harvest workflow.
//
// Activity inputs and outputs are defined as serializable structs that cross the
// Temporal serialization boundary. All fields must be exported for JSON
// serialization by the Temporal SDK's default data converter.
package activities

import "github.com/helixir/pubmed-harvester/internal/domain"

// HarvestInput contains the parameters for the search and id harvest activities.
type HarvestInput struct {
	// HarvestID identifies the workflow run.
	HarvestID string

	// Query is the PubMed search term (search harvest only).
	Query string

	// PMIDs is the candidate id list (id harvest only).
	PMIDs []string

	// Reload refetches articles that are already stored.
	Reload bool
}

// HarvestOutput mirrors domain.HarvestResult.
type HarvestOutput struct {
	Created        []string
	AlreadyExisted []string
	Skipped        []string

	// Retried is set when an earlier attempt of the activity ran. Articles
	// that attempt stored are reported in AlreadyExisted.
	Retried bool
}

// ExpandRelatedInput names one stored article to expand.
type ExpandRelatedInput struct {
	HarvestID string
	PMID      string
}

// ExpandRelatedOutput reports one related-article expansion.
type ExpandRelatedOutput struct {
	PMID         string
	Neighbors    int
	Created      []string
	LinksCreated int
}

// PublishOutcomeInput carries the completion event fields.
type PublishOutcomeInput struct {
	HarvestID      string
	Mode           domain.HarvestMode
	Query          string
	Created        []string
	AlreadyExisted []string
	LinksCreated   int
	// Error is set when the harvest failed.
	Error string
	// DurationSeconds is the workflow run time so far.
	DurationSeconds float64
}

func outputFromResult(res *domain.HarvestResult) *HarvestOutput {
	if res == nil {
		return &HarvestOutput{}
	}
	return &HarvestOutput{
		Created:        res.Created,
		AlreadyExisted: res.AlreadyExisted,
		Skipped:        res.Skipped,
	}
}
