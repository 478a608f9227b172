package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglens/raglens/pkg/types"
)

func sample(d time.Duration, success bool) types.LatencySample {
	return types.LatencySample{
		Provider:  "stub",
		Model:     "stub-embed",
		BatchSize: 5,
		TextCount: 5,
		Duration:  d,
		Success:   success,
		Timestamp: time.Now(),
	}
}

func TestAggregatePercentileMonotonicity(t *testing.T) {
	samples := []types.LatencySample{
		sample(120*time.Millisecond, true),
		sample(80*time.Millisecond, true),
		sample(200*time.Millisecond, true),
		sample(95*time.Millisecond, true),
		sample(310*time.Millisecond, true),
		sample(110*time.Millisecond, true),
		sample(90*time.Millisecond, true),
	}

	result := Aggregate("stub", "stub-embed", 5, samples, time.Second)

	require.Equal(t, types.StatusOK, result.Status)
	assert.LessOrEqual(t, result.LatencyP50, result.LatencyP95)
	assert.LessOrEqual(t, result.LatencyP95, result.LatencyP99)
	assert.LessOrEqual(t, result.LatencyMin, result.LatencyP50)
	assert.LessOrEqual(t, result.LatencyP99, result.LatencyMax)
}

func TestAggregateEmptySampleGuard(t *testing.T) {
	result := Aggregate("stub", "stub-embed", 5, nil, time.Second)

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.True(t, result.Failed())
	assert.Zero(t, result.LatencyP50)
	assert.Zero(t, result.LatencyP95)
	assert.Zero(t, result.LatencyP99)
	assert.Zero(t, result.Throughput)
}

func TestAggregateAllFailed(t *testing.T) {
	samples := []types.LatencySample{
		{Provider: "stub", Model: "m", BatchSize: 5, Error: "rate limited"},
		{Provider: "stub", Model: "m", BatchSize: 5, Error: "timeout"},
	}

	result := Aggregate("stub", "m", 5, samples, time.Second)

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Equal(t, 2, result.Failures)
	assert.Equal(t, "timeout", result.FailureReason)
	assert.Zero(t, result.LatencyP99)
}

func TestAggregatePartialFailure(t *testing.T) {
	samples := []types.LatencySample{
		sample(100*time.Millisecond, true),
		sample(0, false),
		sample(150*time.Millisecond, true),
	}

	result := Aggregate("stub", "stub-embed", 5, samples, time.Second)

	assert.Equal(t, types.StatusPartial, result.Status)
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 1, result.Failures)
	assert.False(t, result.Failed())
}

func TestAggregateDeterministic(t *testing.T) {
	samples := []types.LatencySample{
		sample(100*time.Millisecond, true),
		sample(300*time.Millisecond, true),
		sample(200*time.Millisecond, true),
	}

	a := Aggregate("stub", "m", 1, samples, time.Second)
	b := Aggregate("stub", "m", 1, samples, time.Second)
	assert.Equal(t, a, b)
}

func TestAggregateCacheHitsExcludedFromLatency(t *testing.T) {
	hit := sample(0, true)
	hit.CacheHit = true
	samples := []types.LatencySample{
		hit,
		sample(100*time.Millisecond, true),
		sample(100*time.Millisecond, true),
	}

	result := Aggregate("stub", "m", 5, samples, time.Second)

	assert.Equal(t, types.StatusOK, result.Status)
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 3, result.Successes)
	// The zero-duration replay must not drag the percentiles down.
	assert.Equal(t, 100*time.Millisecond, result.LatencyP50)
}

func TestAggregateAllCacheHits(t *testing.T) {
	hit := sample(0, true)
	hit.CacheHit = true
	result := Aggregate("stub", "m", 5, []types.LatencySample{hit, hit}, time.Second)

	assert.Equal(t, types.StatusOK, result.Status)
	assert.Zero(t, result.LatencyP50)
	assert.Equal(t, 2, result.CacheHits)
	// Nothing was embedded in this run, so there is no rate to report.
	assert.Zero(t, result.Throughput)
}

func TestAggregateThroughput(t *testing.T) {
	samples := []types.LatencySample{
		sample(100*time.Millisecond, true),
		sample(100*time.Millisecond, true),
	}

	result := Aggregate("stub", "m", 5, samples, 2*time.Second)

	// Two successful chunks of batch size 5 in two seconds.
	assert.InDelta(t, 5.0, result.Throughput, 0.001)
}

func TestAggregateThroughputPartialFinalChunk(t *testing.T) {
	// 10 texts at batch size 3: chunks of 3, 3, 3 and a final chunk of 1.
	samples := []types.LatencySample{
		sample(100*time.Millisecond, true),
		sample(100*time.Millisecond, true),
		sample(100*time.Millisecond, true),
		sample(100*time.Millisecond, true),
	}
	for i := range samples {
		samples[i].BatchSize = 3
		samples[i].TextCount = 3
	}
	samples[3].TextCount = 1

	result := Aggregate("stub", "m", 3, samples, time.Second)

	// 10 texts embedded in one second, not 4 chunks * batch size 3 = 12.
	assert.InDelta(t, 10.0, result.Throughput, 0.001)
}

func TestAggregateThroughputExcludesCacheHits(t *testing.T) {
	hit := sample(0, true)
	hit.CacheHit = true
	samples := []types.LatencySample{
		hit,
		sample(100*time.Millisecond, true),
	}

	result := Aggregate("stub", "m", 5, samples, time.Second)

	// Only the network chunk's five texts count.
	assert.InDelta(t, 5.0, result.Throughput, 0.001)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	sorted := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
	}

	assert.Equal(t, 25*time.Millisecond, Percentile(sorted, 50))
	assert.Equal(t, 10*time.Millisecond, Percentile(sorted, 0))
	assert.Equal(t, 40*time.Millisecond, Percentile(sorted, 100))
}

func TestPercentileSingleSample(t *testing.T) {
	sorted := []time.Duration{42 * time.Millisecond}
	assert.Equal(t, 42*time.Millisecond, Percentile(sorted, 50))
	assert.Equal(t, 42*time.Millisecond, Percentile(sorted, 99))
}

func TestPercentileEmpty(t *testing.T) {
	assert.Zero(t, Percentile(nil, 95))
}
