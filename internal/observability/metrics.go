package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the harvester.
// Metrics are organized by subsystem: harvests, articles, related links,
// E-utilities requests and Kafka events.
//
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HarvestsStarted counts harvest runs started, labeled by mode.
	HarvestsStarted *prometheus.CounterVec

	// HarvestsCompleted counts harvest runs that finished successfully, labeled by mode.
	HarvestsCompleted *prometheus.CounterVec

	// HarvestsFailed counts harvest runs that failed, labeled by mode and error kind.
	HarvestsFailed *prometheus.CounterVec

	// HarvestDuration observes harvest run duration in seconds, labeled by mode.
	HarvestDuration *prometheus.HistogramVec

	// CandidatesPerHarvest observes the number of ids considered per run.
	CandidatesPerHarvest prometheus.Histogram

	// ArticlesStored counts articles written, labeled by action (created, updated).
	ArticlesStored *prometheus.CounterVec

	// ArticlesExisting counts candidate ids already present in the store.
	ArticlesExisting prometheus.Counter

	// ArticlesMalformed counts fetched documents that could not be normalized.
	ArticlesMalformed prometheus.Counter

	// LinksCreated counts related-article links stored.
	LinksCreated prometheus.Counter

	// LinksDuplicate counts related-article links that already existed.
	LinksDuplicate prometheus.Counter

	// SourceRequestsTotal counts E-utilities requests, labeled by endpoint and status.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes E-utilities request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRetries counts retried E-utilities requests, labeled by endpoint and reason.
	SourceRetries *prometheus.CounterVec

	// EventsConsumed counts harvest request events, labeled by outcome.
	EventsConsumed *prometheus.CounterVec

	// EventsPublished counts harvest completion events, labeled by outcome.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered with reg.
// A nil reg leaves the collectors unregistered.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Harvests
		HarvestsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_started_total",
			Help:      "Total number of harvest runs started by mode",
		}, []string{"mode"}),
		HarvestsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_completed_total",
			Help:      "Total number of harvest runs completed by mode",
		}, []string{"mode"}),
		HarvestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_failed_total",
			Help:      "Total number of harvest runs that failed by mode and error kind",
		}, []string{"mode", "kind"}),
		HarvestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harvest_duration_seconds",
			Help:      "Duration of harvest runs in seconds by mode",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		CandidatesPerHarvest: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_harvest",
			Help:      "Number of candidate ids considered per harvest run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000, 10000},
		}),

		// Articles
		ArticlesStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_stored_total",
			Help:      "Total number of articles stored by action",
		}, []string{"action"}),
		ArticlesExisting: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_existing_total",
			Help:      "Total number of candidate articles already stored",
		}),
		ArticlesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_malformed_total",
			Help:      "Total number of fetched articles that could not be normalized",
		}),

		// Links
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Total number of related-article links created",
		}),
		LinksDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_duplicate_total",
			Help:      "Total number of related-article links that already existed",
		}),

		// Sources
		SourceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of E-utilities requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		SourceRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of E-utilities requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		SourceRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retried E-utilities requests by endpoint and reason",
		}, []string{"endpoint", "reason"}),

		// Events
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of harvest request events consumed by outcome",
		}, []string{"outcome"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of harvest completion events published by outcome",
		}, []string{"outcome"}),
	}
}

// RecordHarvestStarted records that a harvest run has started.
func (m *Metrics) RecordHarvestStarted(mode string) {
	if m == nil {
		return
	}
	m.HarvestsStarted.WithLabelValues(mode).Inc()
}

// RecordHarvestCompleted records a successful harvest run.
func (m *Metrics) RecordHarvestCompleted(mode string, candidates int, d time.Duration) {
	if m == nil {
		return
	}
	m.HarvestsCompleted.WithLabelValues(mode).Inc()
	m.HarvestDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.CandidatesPerHarvest.Observe(float64(candidates))
}

// RecordHarvestFailed records a failed harvest run.
func (m *Metrics) RecordHarvestFailed(mode, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.HarvestsFailed.WithLabelValues(mode, kind).Inc()
	m.HarvestDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordArticleCreated records a newly stored article.
func (m *Metrics) RecordArticleCreated() {
	if m == nil {
		return
	}
	m.ArticlesStored.WithLabelValues("created").Inc()
}

// RecordArticleUpdated records a reloaded article.
func (m *Metrics) RecordArticleUpdated() {
	if m == nil {
		return
	}
	m.ArticlesStored.WithLabelValues("updated").Inc()
}

// RecordArticlesExisting records candidates skipped because they were stored.
func (m *Metrics) RecordArticlesExisting(count int) {
	if m == nil {
		return
	}
	m.ArticlesExisting.Add(float64(count))
}

// RecordArticleMalformed records a document that failed normalization.
func (m *Metrics) RecordArticleMalformed() {
	if m == nil {
		return
	}
	m.ArticlesMalformed.Inc()
}

// RecordLinkCreated records a stored related-article link.
func (m *Metrics) RecordLinkCreated() {
	if m == nil {
		return
	}
	m.LinksCreated.Inc()
}

// RecordLinkDuplicate records a link that was already stored.
func (m *Metrics) RecordLinkDuplicate() {
	if m == nil {
		return
	}
	m.LinksDuplicate.Inc()
}

// ObserveRequest records one E-utilities request attempt. A zero status
// code means the request never got a response.
func (m *Metrics) ObserveRequest(endpoint string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.SourceRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.SourceRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry records a retried E-utilities request.
func (m *Metrics) ObserveRetry(endpoint, reason string) {
	if m == nil {
		return
	}
	m.SourceRetries.WithLabelValues(endpoint, reason).Inc()
}

// RecordEventConsumed records the outcome of handling a harvest request event.
func (m *Metrics) RecordEventConsumed(outcome string) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(outcome).Inc()
}

// RecordEventPublished records the outcome of publishing a completion event.
func (m *Metrics) RecordEventPublished(outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}
