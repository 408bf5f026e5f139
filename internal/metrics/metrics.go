// Package metrics holds the Prometheus collectors of bunker-search.
//
// Collectors live on a private registry rather than the global default so
// tests and multiple servers in one process never collide. Every method is
// safe on a nil *Metrics, which disables recording.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bunker_search"

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics groups the collectors.
type Metrics struct {
	registry *prometheus.Registry

	queries         prometheus.Counter
	queryDuration   prometheus.Histogram
	branchDuration  *prometheus.HistogramVec
	branchFailures  *prometheus.CounterVec
	kiwixRequests   *prometheus.CounterVec
	kiwixCatalog    prometheus.Gauge
	answers         *prometheus.CounterVec
	indexedItems    *prometheus.CounterVec
	indexDuration   *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	lastIndexedUnix *prometheus.GaugeVec
}

// New creates and registers every collector, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search requests with a non-empty query.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end search latency, answer synthesis included.",
			Buckets:   prometheus.DefBuckets,
		}),
		branchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "branch_duration_seconds",
			Help:      "Latency of each retrieval branch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"branch"}),
		branchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_failures_total",
			Help:      "Retrieval branches that failed or timed out and contributed no hits.",
		}, []string{"branch", "outcome"}),
		kiwixRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kiwix_requests_total",
			Help:      "Requests sent to the Kiwix server.",
		}, []string{"endpoint", "outcome"}),
		kiwixCatalog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kiwix_collections",
			Help:      "Collections in the current Kiwix catalog snapshot.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer synthesis attempts.",
		}, []string{"outcome"}),
		indexedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_items_total",
			Help:      "Items seen by indexing passes, by result.",
		}, []string{"source", "result"}),
		indexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_pass_duration_seconds",
			Help:      "Wall time of indexing passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		lastIndexedUnix: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful indexing pass.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queries,
		m.queryDuration,
		m.branchDuration,
		m.branchFailures,
		m.kiwixRequests,
		m.kiwixCatalog,
		m.answers,
		m.indexedItems,
		m.indexDuration,
		m.httpRequests,
		m.httpLatency,
		m.lastIndexedUnix,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuery records one search request.
func (m *Metrics) ObserveQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.queries.Inc()
	m.queryDuration.Observe(d.Seconds())
}

// ObserveBranch records the latency of one retrieval branch.
func (m *Metrics) ObserveBranch(branch string, d time.Duration) {
	if m == nil {
		return
	}
	m.branchDuration.WithLabelValues(branch).Observe(d.Seconds())
}

// BranchFailed records a branch that contributed no hits because of an error.
func (m *Metrics) BranchFailed(branch, outcome string) {
	if m == nil {
		return
	}
	m.branchFailures.WithLabelValues(branch, outcome).Inc()
}

// KiwixRequest records one request to the Kiwix server.
func (m *Metrics) KiwixRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.kiwixRequests.WithLabelValues(endpoint, outcome).Inc()
}

// SetKiwixCollections records the size of the catalog snapshot.
func (m *Metrics) SetKiwixCollections(n int) {
	if m == nil {
		return
	}
	m.kiwixCatalog.Set(float64(n))
}

// Answer records one answer synthesis attempt.
func (m *Metrics) Answer(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

// IndexPass records the outcome of one indexing pass.
func (m *Metrics) IndexPass(source string, indexed, unchanged, invalid, removed int, d time.Duration) {
	if m == nil {
		return
	}
	m.indexedItems.WithLabelValues(source, "indexed").Add(float64(indexed))
	m.indexedItems.WithLabelValues(source, "unchanged").Add(float64(unchanged))
	m.indexedItems.WithLabelValues(source, "invalid").Add(float64(invalid))
	m.indexedItems.WithLabelValues(source, "removed").Add(float64(removed))
	m.indexDuration.WithLabelValues(source).Observe(d.Seconds())
	m.lastIndexedUnix.WithLabelValues(source).SetToCurrentTime()
}

// HTTPRequest records one served HTTP request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
