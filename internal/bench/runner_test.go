package bench

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglens/raglens/caches/memory"
	"github.com/raglens/raglens/pkg/provider"
	"github.com/raglens/raglens/pkg/types"
	"github.com/raglens/raglens/providers/openai"
)

func TestChunk(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e", "f", "g"}

	chunks := Chunk(texts, 3)
	require.Len(t, chunks, 3) // ceil(7/3)

	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, texts, flat)

	assert.Len(t, Chunk(texts, 1), 7)
	assert.Len(t, Chunk(texts, 7), 1)
	assert.Len(t, Chunk(texts, 100), 1)
	assert.Nil(t, Chunk(nil, 3))
	assert.Nil(t, Chunk(texts, 0))
}

// embedServer emulates an OpenAI-shaped embeddings endpoint and counts
// network calls.
func embedServer(t *testing.T, delay time.Duration, calls *atomic.Int64, failBatch int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if failBatch > 0 && len(req.Input) == failBatch {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}

		if delay > 0 {
			time.Sleep(delay)
		}

		type obj struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Model string `json:"model"`
			Data  []obj  `json:"data"`
		}{Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, obj{Index: i, Embedding: []float64{0.1, 0.2, 0.3}})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testInstance(t *testing.T, baseURL, apiKey string) Instance {
	t.Helper()
	cfg := provider.Config{
		Name:    "openai",
		Type:    "openai",
		APIKey:  apiKey,
		BaseURL: baseURL,
		Models:  []string{"text-embedding-3-small"},
	}
	p, err := openai.NewFromConfig(cfg)
	require.NoError(t, err)
	return Instance{Provider: p, Config: cfg}
}

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("sample text number %d about something", i)
	}
	return texts
}

func TestRunnerChunkingCorrectness(t *testing.T) {
	var calls atomic.Int64
	srv := embedServer(t, 0, &calls, 0)
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 10,
		BatchSizes:         []int{3},
		MaxConcurrent:      4,
		MaxRetries:         0,
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "test-key")}, makeTexts(10))
	require.NoError(t, err)
	require.Len(t, results, 1)

	// ceil(10/3) adapter calls, all successful.
	assert.Equal(t, int64(4), calls.Load())
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, 4, results[0].Samples)
	assert.Equal(t, 4, results[0].Successes)
}

func TestRunnerCacheIdempotence(t *testing.T) {
	var calls atomic.Int64
	srv := embedServer(t, 0, &calls, 0)
	defer srv.Close()

	store := memory.New(time.Hour)
	defer store.Close()

	cfg := Config{
		SamplesPerCategory: 10,
		BatchSizes:         []int{5},
		MaxConcurrent:      2,
		MaxRetries:         0,
	}
	runner := NewRunner(cfg, WithCache(store))
	inst := testInstance(t, srv.URL, "test-key")
	texts := makeTexts(10)

	first, err := runner.Run(context.Background(), []Instance{inst}, texts)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, 0, first[0].CacheHits)

	// The second identical run must issue zero network calls.
	second, err := runner.Run(context.Background(), []Instance{inst}, texts)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, types.StatusOK, second[0].Status)
	assert.Equal(t, 2, second[0].CacheHits)
	assert.Equal(t, 2, second[0].Successes)
}

func TestRunnerPartialFailureIsolation(t *testing.T) {
	var calls atomic.Int64
	srv := embedServer(t, 0, &calls, 5)
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 10,
		BatchSizes:         []int{1, 5},
		MaxConcurrent:      2,
		MaxRetries:         0,
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "test-key")}, makeTexts(10))
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Deterministic ordering: batch 1 before batch 5.
	assert.Equal(t, 1, results[0].BatchSize)
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, 5, results[1].BatchSize)
	assert.Equal(t, types.StatusFailed, results[1].Status)
	assert.NotEmpty(t, results[1].FailureReason)
}

func TestRunnerAuthErrorFailsProviderModelPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 4,
		BatchSizes:         []int{1, 2, 4},
		MaxConcurrent:      2,
		MaxRetries:         3, // auth errors must not be retried regardless
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "bad-key")}, makeTexts(4))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, types.StatusFailed, r.Status, "batch size %d", r.BatchSize)
		assert.NotEmpty(t, r.FailureReason)
	}
}

func TestRunnerMissingKeySkipsProvider(t *testing.T) {
	runner := NewRunner(Config{
		SamplesPerCategory: 4,
		BatchSizes:         []int{1, 5},
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, "http://unused", "")}, makeTexts(4))

	// No usable provider at all is a configuration error.
	require.Error(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, types.StatusSkipped, r.Status)
		assert.True(t, r.Failed())
	}
}

func TestRunnerRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		type obj struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Data []obj `json:"data"`
		}{}
		for i := range req.Input {
			resp.Data = append(resp.Data, obj{Index: i, Embedding: []float64{1}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 2,
		BatchSizes:         []int{2},
		MaxRetries:         2,
		RetryBaseDelay:     time.Millisecond,
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "test-key")}, makeTexts(2))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, int64(2), calls.Load())
}

func TestRunnerThroughputCountsActualTexts(t *testing.T) {
	var embedded atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		embedded.Add(int64(len(req.Input)))

		type obj struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Data []obj `json:"data"`
		}{}
		for i := range req.Input {
			resp.Data = append(resp.Data, obj{Index: i, Embedding: []float64{1}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 10,
		BatchSizes:         []int{3},
		MaxConcurrent:      2,
		MaxRetries:         0,
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "test-key")}, makeTexts(10))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, types.StatusOK, results[0].Status)

	// 10 texts at batch size 3 means a final chunk of one text. The
	// reported rate must match what the provider actually embedded, not
	// chunks * batch size (which would claim 12).
	implied := results[0].Throughput * results[0].WallTime.Seconds()
	assert.InDelta(t, float64(embedded.Load()), implied, 0.01)
	assert.InDelta(t, 10.0, implied, 0.01)
}

func TestRunnerScenario(t *testing.T) {
	var calls atomic.Int64
	srv := embedServer(t, 100*time.Millisecond, &calls, 0)
	defer srv.Close()

	runner := NewRunner(Config{
		SamplesPerCategory: 20,
		BatchSizes:         []int{1, 5},
		MaxConcurrent:      5,
		MaxRetries:         0,
		NoCache:            true,
	})

	results, err := runner.Run(context.Background(), []Instance{testInstance(t, srv.URL, "test-key")}, makeTexts(20))
	require.NoError(t, err)
	require.Len(t, results, 2)

	batch1, batch5 := results[0], results[1]
	require.Equal(t, 1, batch1.BatchSize)
	require.Equal(t, 5, batch5.BatchSize)

	assert.Equal(t, types.StatusOK, batch1.Status)
	assert.Equal(t, 20, batch1.Successes)
	assert.Equal(t, types.StatusOK, batch5.Status)
	assert.Equal(t, 4, batch5.Successes)

	// Every call sleeps ~100ms; P50 should sit near that.
	assert.GreaterOrEqual(t, batch1.LatencyP50, 90*time.Millisecond)
	assert.Less(t, batch1.LatencyP50, 400*time.Millisecond)

	// Batch 5 embeds five texts per call, so its throughput should be
	// well above batch 1's (ideally ~5x; allow scheduling slack).
	assert.Greater(t, batch5.Throughput, batch1.Throughput*2)
}
