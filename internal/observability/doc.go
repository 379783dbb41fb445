// Package observability provides logging, metrics and context helpers for
// the harvester.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	logger = observability.WithHarvestContext(logger, harvestID, "search")
//
// # Metrics
//
//	metrics := observability.NewMetrics("pubmed_harvester")
//	metrics.RecordHarvestStarted("search")
//
// *Metrics satisfies papersources.RequestObserver, so it can be handed to the
// PubMed client to count E-utilities requests and retries.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - harvest_id: harvest run identifier
//   - mode: harvest mode (search, ids, related)
//   - pmid: PubMed identifier
//   - workflow_id, workflow_run_id: Temporal execution
package observability
