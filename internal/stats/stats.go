// Package stats aggregates latency samples into benchmark results.
// Aggregation is a pure function: identical sample sets always produce
// identical statistics.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/raglens/raglens/pkg/types"
)

// Aggregate reduces the samples for one (provider, model, batch-size)
// tuple into a BenchmarkResult. Cache-hit samples count toward totals
// but are excluded from latency percentiles, since a replayed result
// measures nothing. With zero successful network samples and at least
// one cache hit the tuple is still OK (the data exists); with zero
// successes of any kind it is marked failed and no percentile is
// computed.
func Aggregate(provider, model string, batchSize int, samples []types.LatencySample, wall time.Duration) types.BenchmarkResult {
	result := types.BenchmarkResult{
		Provider:  provider,
		Model:     model,
		BatchSize: batchSize,
		Samples:   len(samples),
		WallTime:  wall,
	}

	var durations []time.Duration
	var lastErr string
	embedded := 0
	for _, s := range samples {
		switch {
		case s.Success && s.CacheHit:
			result.Successes++
			result.CacheHits++
		case s.Success:
			result.Successes++
			embedded += s.TextCount
			durations = append(durations, s.Duration)
		default:
			result.Failures++
			if s.Error != "" {
				lastErr = s.Error
			}
		}
	}

	if result.Successes == 0 {
		result.Status = types.StatusFailed
		result.FailureReason = lastErr
		return result
	}

	if result.Failures > 0 {
		result.Status = types.StatusPartial
		result.FailureReason = lastErr
	} else {
		result.Status = types.StatusOK
	}

	// Throughput counts texts actually sent over the network, not
	// Successes*batchSize: the final chunk holds N mod B texts, and a
	// cache hit embeds nothing.
	if wall > 0 && embedded > 0 {
		result.Throughput = float64(embedded) / wall.Seconds()
	}

	if len(durations) == 0 {
		// Every success was a cache hit; there is nothing to time.
		return result
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	result.LatencyMin = durations[0]
	result.LatencyMax = durations[len(durations)-1]
	result.LatencyMean = mean(durations)
	result.LatencyP50 = Percentile(durations, 50)
	result.LatencyP95 = Percentile(durations, 95)
	result.LatencyP99 = Percentile(durations, 99)

	return result
}

// Percentile computes the p-th percentile of sorted durations using
// linear interpolation between closest ranks. The input must be sorted
// ascending and non-empty.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + time.Duration(frac*float64(sorted[upper]-sorted[lower]))
}

func mean(durations []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}
