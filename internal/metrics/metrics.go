// Package metrics provides Prometheus metrics for benchmark runs.
// Long runs against rate-limited providers can take an hour or more;
// exposing counters over an optional HTTP listener makes progress
// visible without waiting for the final table.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "raglens"

// LatencyBuckets defines histogram buckets for embedding call latency
// (in seconds).
var LatencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 1.0, 1.5, 2.0,
	3.0, 5.0, 7.5, 10.0, 15.0, 30.0, 60.0,
}

var (
	// EmbedRequestsTotal counts attempted embedding calls.
	EmbedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_requests_total",
			Help:      "Total number of embedding calls attempted",
		},
		[]string{"provider", "model", "batch_size", "status"},
	)

	// EmbedLatencySeconds tracks embedding call latency.
	EmbedLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_latency_seconds",
			Help:      "Embedding call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider", "model", "batch_size"},
	)

	// CacheOperationsTotal counts cache lookups by outcome.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// RetrievalRequestsTotal counts recall-evaluation searches.
	RetrievalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval calls issued by the recall evaluator",
		},
		[]string{"backend", "search_type", "status"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics listener on addr. It blocks, so callers run
// it in a goroutine; errors after shutdown are expected and ignored by
// the caller.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
