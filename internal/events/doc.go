// Package events connects the harvester to Kafka.
//
// Listener consumes HarvestRequestedEvent messages, validates them, and hands
// them to a Handler: either a Temporal workflow starter or DirectHandler,
// which runs the harvest in process. Publisher writes HarvestCompletedEvent
// messages keyed by harvest id.
package events
