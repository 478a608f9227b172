package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglens/raglens/pkg/types"
)

func TestBenchmarkTableMarksFailures(t *testing.T) {
	results := []types.BenchmarkResult{
		{
			Provider: "openai", Model: "text-embedding-3-small", BatchSize: 1,
			Status: types.StatusOK, Samples: 20, Successes: 20,
			LatencyP50: 100 * time.Millisecond,
			LatencyP95: 150 * time.Millisecond,
			LatencyP99: 180 * time.Millisecond,
			Throughput: 9.5,
		},
		{
			Provider: "cohere", Model: "embed-v3", BatchSize: 5,
			Status: types.StatusFailed, Samples: 4, Failures: 4,
			FailureReason: "rate limited",
		},
		{
			Provider: "voyage", Model: "voyage-3", BatchSize: 1,
			Status: types.StatusSkipped, FailureReason: "no API key configured",
		},
	}

	table := BenchmarkTable(results)

	// Failed rows stay in the table with a status marker; their
	// percentile cells must never render numbers.
	assert.Contains(t, table, "openai")
	assert.Contains(t, table, "❌ failed")
	assert.Contains(t, table, "- skipped")
	assert.Contains(t, table, "100ms")
	assert.Contains(t, table, "0/4")
}

func TestRecallTable(t *testing.T) {
	report := &types.RecallReport{
		QueryVersion: "v1",
		IndexVersion: "v3",
		Backend:      "qdrant",
		SearchType:   "hybrid",
		Queries:      10,
		Recall:       map[int]float64{1: 0.2, 5: 0.6, 10: 0.8},
	}

	table := RecallTable(report)
	assert.Contains(t, table, "0.200")
	assert.Contains(t, table, "0.600")
	assert.Contains(t, table, "0.800")
	assert.Contains(t, table, "queries=v1")
	assert.Contains(t, table, "index=v3")
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "results.json")

	run := NewRunReport("wiki-snippets", false, time.Now(), []types.BenchmarkResult{
		{Provider: "openai", Model: "m", BatchSize: 1, Status: types.StatusOK},
	})
	require.NotEmpty(t, run.RunID)

	require.NoError(t, WriteJSON(path, run))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded types.RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, run.RunID, decoded.RunID)
	assert.Len(t, decoded.Results, 1)

	// No temp files left next to the output.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
