// Package metrics defines the Prometheus metric collectors for the shard
// process and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the shard.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        prometheus.Histogram
	DocsRankedTotal     prometheus.Counter
	ResultsReturned     prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	SegmentsLoaded      prometheus.Gauge
	SegmentOpenFailures prometheus.Counter
	MlockFailuresTotal  prometheus.Counter
	ActiveConnections   prometheus.Gauge
}

// New creates and registers all Prometheus metrics for the shard.
func New() *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shard_queries_total",
				Help: "Total queries handled, by outcome (ok, malformed, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shard_query_latency_seconds",
				Help:    "End-to-end latency of one query across all local segments.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		DocsRankedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shard_docs_ranked_total",
				Help: "Total candidate documents scored by the ranker worker pool.",
			},
		),
		ResultsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shard_results_returned",
				Help:    "Number of results returned per query after merge.",
				Buckets: []float64{0, 1, 5, 10},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shard_cache_hits_total",
				Help: "Total query result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shard_cache_misses_total",
				Help: "Total query result cache misses.",
			},
		),
		SegmentsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shard_segments_loaded",
				Help: "Number of segments currently mapped by this shard.",
			},
		),
		SegmentOpenFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shard_segment_open_failures_total",
				Help: "Total segments that failed to open (corrupt or truncated).",
			},
		),
		MlockFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shard_mlock_failures_total",
				Help: "Total segments opened without their pages pinned (mlock failed or the mlock cap was exhausted).",
			},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shard_active_connections",
				Help: "Number of client connections currently being served.",
			},
		),
	}

	prometheus.MustRegister(
		m.QueriesTotal,
		m.QueryLatency,
		m.DocsRankedTotal,
		m.ResultsReturned,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SegmentsLoaded,
		m.SegmentOpenFailures,
		m.MlockFailuresTotal,
		m.ActiveConnections,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
