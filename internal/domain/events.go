package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants for harvest messages.
const (
	EventTypeHarvestRequested = "pubmed.harvest.requested"
	EventTypeHarvestCompleted = "pubmed.harvest.completed"
	EventTypeHarvestFailed    = "pubmed.harvest.failed"
)

// HarvestRequestedEvent asks the harvester to run a search or id harvest.
// Exactly one of Query or PMIDs must be set.
type HarvestRequestedEvent struct {
	EventID       string   `json:"event_id" validate:"required"`
	EventType     string   `json:"event_type"`
	Query         string   `json:"query,omitempty" validate:"required_without=PMIDs,excluded_with=PMIDs,max=4096"`
	PMIDs         []string `json:"pmids,omitempty" validate:"required_without=Query,max=10000,dive,numeric"`
	Reload        bool     `json:"reload"`
	ExpandRelated bool     `json:"expand_related"`
}

// Mode reports which harvest entry point the event targets.
func (e HarvestRequestedEvent) Mode() HarvestMode {
	if e.Query != "" {
		return HarvestModeSearch
	}
	return HarvestModeIDs
}

// HarvestID returns the id of the harvest run started for this event.
// Redelivered events map to the same run.
func (e HarvestRequestedEvent) HarvestID() string {
	return "harvest-" + e.EventID
}

// HarvestCompletedEvent is published after a harvest run finishes.
type HarvestCompletedEvent struct {
	EventID        string        `json:"event_id"`
	EventType      string        `json:"event_type"`
	HarvestID      string        `json:"harvest_id"`
	Mode           HarvestMode   `json:"mode"`
	Query          string        `json:"query,omitempty"`
	Created        []string      `json:"created"`
	AlreadyExisted []string      `json:"already_existed"`
	LinksCreated   int           `json:"links_created"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// NewHarvestCompletedEvent builds a completion event for a harvest run.
func NewHarvestCompletedEvent(harvestID string, mode HarvestMode, result *HarvestResult) *HarvestCompletedEvent {
	ev := &HarvestCompletedEvent{
		EventID:     uuid.New().String(),
		EventType:   EventTypeHarvestCompleted,
		HarvestID:   harvestID,
		Mode:        mode,
		CompletedAt: time.Now().UTC(),
	}
	if result != nil {
		ev.Created = result.Created
		ev.AlreadyExisted = result.AlreadyExisted
	}
	return ev
}

// MarkFailed turns the event into a failure notification.
func (e *HarvestCompletedEvent) MarkFailed(err error) *HarvestCompletedEvent {
	e.EventType = EventTypeHarvestFailed
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
