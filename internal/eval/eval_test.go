package eval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglens/raglens/caches/memory"
	"github.com/raglens/raglens/pkg/types"
)

// fixedRetriever returns a canned ranking per query and counts calls.
type fixedRetriever struct {
	rankings map[string][]string
	calls    int
	limits   []int
	err      error
}

func (r *fixedRetriever) Search(ctx context.Context, query string, limit int) ([]string, error) {
	r.calls++
	r.limits = append(r.limits, limit)
	if r.err != nil {
		return nil, r.err
	}
	ids := r.rankings[query]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func TestRecallScenario(t *testing.T) {
	retriever := &fixedRetriever{rankings: map[string][]string{
		"find Docker networking help": {"doc_7", "doc_42", "doc_9", "doc_3", "doc_1"},
	}}
	evaluator := NewEvaluator(retriever, nil, nil)

	report, err := evaluator.Run(context.Background(), Config{
		QueryVersion: "v1",
		IndexVersion: "raw",
		Backend:      "inmem",
		SearchType:   "vector",
	}, []types.QueryRecord{
		{ID: "q1", Query: "find Docker networking help", ExpectedID: "doc_42"},
	})
	require.NoError(t, err)

	// Expected doc at rank 2: miss at K=1, hit from K=5 upward.
	assert.Equal(t, 0.0, report.Recall[1])
	assert.Equal(t, 1.0, report.Recall[5])
	assert.Equal(t, 1.0, report.Recall[10])
	assert.Equal(t, 1.0, report.Recall[30])

	require.Len(t, report.PerQuery, 1)
	assert.Equal(t, 2, report.PerQuery[0].Rank)
}

func TestRecallMonotonicity(t *testing.T) {
	rankings := make(map[string][]string)
	var queries []types.QueryRecord
	for i := 0; i < 12; i++ {
		q := fmt.Sprintf("query %d", i)
		var ids []string
		for j := 0; j < 30; j++ {
			ids = append(ids, fmt.Sprintf("doc_%d_%d", i, j))
		}
		rankings[q] = ids
		// Spread expected docs across ranks, some beyond the window.
		expected := fmt.Sprintf("doc_%d_%d", i, i*3)
		queries = append(queries, types.QueryRecord{ID: q, Query: q, ExpectedID: expected})
	}

	evaluator := NewEvaluator(&fixedRetriever{rankings: rankings}, nil, nil)
	report, err := evaluator.Run(context.Background(), Config{QueryVersion: "v1", IndexVersion: "raw"}, queries)
	require.NoError(t, err)

	prev := -1.0
	for _, k := range DefaultKs {
		recall := report.Recall[k]
		assert.GreaterOrEqual(t, recall, prev, "recall@%d", k)
		prev = recall
	}
}

func TestOneRetrievalCallPerQueryAtKMax(t *testing.T) {
	retriever := &fixedRetriever{rankings: map[string][]string{}}
	evaluator := NewEvaluator(retriever, nil, nil)

	queries := []types.QueryRecord{
		{ID: "q1", Query: "one", ExpectedID: "a"},
		{ID: "q2", Query: "two", ExpectedID: "b"},
	}
	_, err := evaluator.Run(context.Background(), Config{QueryVersion: "v1", IndexVersion: "raw"}, queries)
	require.NoError(t, err)

	assert.Equal(t, 2, retriever.calls)
	for _, limit := range retriever.limits {
		assert.Equal(t, 30, limit)
	}
}

func TestMissStaysInDenominator(t *testing.T) {
	retriever := &fixedRetriever{rankings: map[string][]string{
		"hit":  {"doc_1"},
		"miss": {"doc_x", "doc_y"},
	}}
	evaluator := NewEvaluator(retriever, nil, nil)

	report, err := evaluator.Run(context.Background(), Config{QueryVersion: "v1", IndexVersion: "raw"}, []types.QueryRecord{
		{ID: "q1", Query: "hit", ExpectedID: "doc_1"},
		{ID: "q2", Query: "miss", ExpectedID: "doc_never"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Queries)
	assert.Equal(t, 0.5, report.Recall[30])

	var missOutcome types.QueryOutcome
	for _, o := range report.PerQuery {
		if o.QueryID == "q2" {
			missOutcome = o
		}
	}
	assert.Zero(t, missOutcome.Rank)
	for _, k := range DefaultKs {
		assert.False(t, missOutcome.HitAt[k])
	}
}

func TestFailedRetrievalCountsAsMiss(t *testing.T) {
	retriever := &fixedRetriever{err: fmt.Errorf("backend down")}
	evaluator := NewEvaluator(retriever, nil, nil)

	report, err := evaluator.Run(context.Background(), Config{QueryVersion: "v1", IndexVersion: "raw"}, []types.QueryRecord{
		{ID: "q1", Query: "anything", ExpectedID: "doc_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Recall[30])
	assert.Equal(t, 1, report.Queries)
}

func TestSearchResultCaching(t *testing.T) {
	retriever := &fixedRetriever{rankings: map[string][]string{
		"cached query": {"doc_1", "doc_2"},
	}}
	store := memory.New(time.Hour)
	evaluator := NewEvaluator(retriever, store, nil)

	cfg := Config{QueryVersion: "v1", IndexVersion: "raw", Backend: "inmem", SearchType: "vector"}
	queries := []types.QueryRecord{{ID: "q1", Query: "cached query", ExpectedID: "doc_2"}}

	first, err := evaluator.Run(context.Background(), cfg, queries)
	require.NoError(t, err)
	second, err := evaluator.Run(context.Background(), cfg, queries)
	require.NoError(t, err)

	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, first.Recall, second.Recall)

	// A different index version must not replay the cached ranking.
	cfg.IndexVersion = "v3"
	_, err = evaluator.Run(context.Background(), cfg, queries)
	require.NoError(t, err)
	assert.Equal(t, 2, retriever.calls)
}

func TestNoCacheBypassesCache(t *testing.T) {
	retriever := &fixedRetriever{rankings: map[string][]string{"q": {"doc_1"}}}
	store := memory.New(time.Hour)
	evaluator := NewEvaluator(retriever, store, nil)

	cfg := Config{QueryVersion: "v1", IndexVersion: "raw", NoCache: true}
	queries := []types.QueryRecord{{ID: "q1", Query: "q", ExpectedID: "doc_1"}}

	for i := 0; i < 3; i++ {
		_, err := evaluator.Run(context.Background(), cfg, queries)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, retriever.calls)
}

func TestEmptyQuerySet(t *testing.T) {
	evaluator := NewEvaluator(&fixedRetriever{}, nil, nil)
	report, err := evaluator.Run(context.Background(), Config{QueryVersion: "v1", IndexVersion: "raw"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Queries)
	assert.Equal(t, 0.0, report.Recall[1])
}
