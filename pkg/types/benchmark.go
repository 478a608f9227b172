// Package types defines the shared data model for the benchmark runner
// and the recall evaluator.
package types

import "time"

// LatencySample is one measured embedding call, successful or not.
// Samples are immutable once recorded and only ever aggregated.
type LatencySample struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	BatchSize int           `json:"batch_size"`
	// TextCount is the number of texts in this call's chunk. The final
	// chunk of a run holds N mod B texts, so this can be smaller than
	// BatchSize.
	TextCount int           `json:"text_count"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	CacheHit  bool          `json:"cache_hit"`
	Timestamp time.Time     `json:"timestamp"`
}

// BenchmarkStatus marks how a (provider, model, batch-size) tuple ended.
type BenchmarkStatus string

const (
	// StatusOK means every chunk for the tuple succeeded.
	StatusOK BenchmarkStatus = "ok"
	// StatusPartial means some chunks failed but at least one succeeded.
	StatusPartial BenchmarkStatus = "partial"
	// StatusFailed means zero chunks succeeded. Percentile fields are
	// meaningless and must not be rendered as numbers.
	StatusFailed BenchmarkStatus = "failed"
	// StatusSkipped means the provider was never attempted (e.g. no
	// credentials configured).
	StatusSkipped BenchmarkStatus = "skipped"
)

// BenchmarkResult aggregates latency samples for one
// (provider, model, batch-size) tuple.
type BenchmarkResult struct {
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	BatchSize int             `json:"batch_size"`
	Status    BenchmarkStatus `json:"status"`

	Samples   int `json:"samples"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
	CacheHits int `json:"cache_hits"`

	LatencyMin  time.Duration `json:"latency_min"`
	LatencyMax  time.Duration `json:"latency_max"`
	LatencyMean time.Duration `json:"latency_mean"`
	LatencyP50  time.Duration `json:"latency_p50"`
	LatencyP95  time.Duration `json:"latency_p95"`
	LatencyP99  time.Duration `json:"latency_p99"`

	// Throughput is embeddings actually produced by network calls per
	// second over the tuple's wall time. Cache hits embed nothing and
	// contribute zero; an all-cache-hit tuple reports zero throughput.
	Throughput float64       `json:"throughput"`
	WallTime   time.Duration `json:"wall_time"`

	// FailureReason carries the dominant error for failed tuples.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Failed reports whether the tuple produced no usable measurements.
func (r *BenchmarkResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusSkipped
}

// RunReport is the serialized output of one benchmark run.
type RunReport struct {
	RunID     string            `json:"run_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Dataset   string            `json:"dataset"`
	Degraded  bool              `json:"degraded_dataset"`
	Results   []BenchmarkResult `json:"results"`
}
