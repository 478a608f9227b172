// Package bench drives concurrent embedding calls against configured
// providers and aggregates latency statistics per (provider, model,
// batch-size) tuple. The runner owns transport, concurrency, retries,
// and caching; provider adapters only translate requests and responses.
package bench

import (
	"time"

	"github.com/raglens/raglens/pkg/provider"
)

// Instance pairs a provider adapter with the configuration it was
// created from, so the runner can see models and credentials without
// widening the adapter interface.
type Instance struct {
	Provider provider.EmbeddingProvider
	Config   provider.Config
}

// Config controls one benchmark run.
type Config struct {
	// SamplesPerCategory is the number of texts drawn for each
	// (provider, model, batch-size) tuple.
	SamplesPerCategory int

	// BatchSizes lists the chunk sizes to benchmark.
	BatchSizes []int

	// MaxConcurrent bounds in-flight embedding calls across the run.
	MaxConcurrent int

	// CallTimeout is the per-attempt timeout.
	CallTimeout time.Duration

	// MaxRetries bounds retries for transient errors. Permanent errors
	// (401, 400) are never retried.
	MaxRetries int

	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay time.Duration

	// NoCache disables cache reads and writes for this run.
	NoCache bool

	// CacheTTL is the lifetime of cached embedding results.
	CacheTTL time.Duration
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		SamplesPerCategory: 20,
		BatchSizes:         []int{1, 5, 25},
		MaxConcurrent:      5,
		CallTimeout:        30 * time.Second,
		MaxRetries:         3,
		RetryBaseDelay:     500 * time.Millisecond,
		CacheTTL:           7 * 24 * time.Hour,
	}
}

// Chunk splits texts into groups of at most size elements, preserving
// order. For N texts it produces ceil(N/size) chunks.
func Chunk(texts []string, size int) [][]string {
	if size <= 0 || len(texts) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		chunks = append(chunks, texts[start:end])
	}
	return chunks
}
