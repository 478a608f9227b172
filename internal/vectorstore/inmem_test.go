package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *InMemStore {
	s := NewInMemStore()
	s.Add(
		InMemDoc{DocID: "doc_1", Variant: "raw", Text: "docker container networking and bridges", Vector: []float64{1, 0, 0}},
		InMemDoc{DocID: "doc_2", Variant: "raw", Text: "postgres index performance tuning", Vector: []float64{0, 1, 0}},
		InMemDoc{DocID: "doc_3", Variant: "raw", Text: "kubernetes pod scheduling", Vector: []float64{0, 0, 1}},
		InMemDoc{DocID: "doc_4", Variant: "v2", Text: "docker networking summary", Vector: []float64{0.9, 0.1, 0}},
	)
	return s
}

func TestInMemVectorSearch(t *testing.T) {
	s := seededStore()

	results, err := s.SearchVector(context.Background(), []float64{1, 0, 0}, "raw", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc_1", results[0].DocID)

	// Variant filtering keeps summary documents out of raw searches.
	for _, r := range results {
		assert.NotEqual(t, "doc_4", r.DocID)
	}
}

func TestInMemFullTextSearch(t *testing.T) {
	s := seededStore()

	results, err := s.SearchFullText(context.Background(), "docker networking", "raw", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc_1", results[0].DocID)
}

func TestInMemSearchLimit(t *testing.T) {
	s := seededStore()

	results, err := s.SearchVector(context.Background(), []float64{1, 1, 1}, "raw", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieverVector(t *testing.T) {
	s := seededStore()
	embed := func(ctx context.Context, texts []string) ([][]float64, error) {
		return [][]float64{{1, 0, 0}}, nil
	}

	r, err := NewRetriever(s, embed, SearchVector, "raw")
	require.NoError(t, err)

	ids, err := r.Search(context.Background(), "docker networking", 5)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "doc_1", ids[0])
}

func TestRetrieverFullTextNeedsNoEmbed(t *testing.T) {
	s := seededStore()

	r, err := NewRetriever(s, nil, SearchFullText, "raw")
	require.NoError(t, err)

	ids, err := r.Search(context.Background(), "postgres index", 5)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "doc_2", ids[0])
}

func TestRetrieverVectorRequiresEmbed(t *testing.T) {
	_, err := NewRetriever(seededStore(), nil, SearchVector, "raw")
	assert.Error(t, err)
	_, err = NewRetriever(seededStore(), nil, SearchHybrid, "raw")
	assert.Error(t, err)
}

func TestRetrieverHybrid(t *testing.T) {
	s := seededStore()
	embed := func(ctx context.Context, texts []string) ([][]float64, error) {
		return [][]float64{{1, 0, 0}}, nil
	}

	r, err := NewRetriever(s, embed, SearchHybrid, "raw")
	require.NoError(t, err)

	ids, err := r.Search(context.Background(), "docker networking", 5)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	// doc_1 tops both lists, so fusion must keep it first.
	assert.Equal(t, "doc_1", ids[0])
}

func TestRRFFusion(t *testing.T) {
	a := []ScoredID{{DocID: "x", Score: 0.9}, {DocID: "y", Score: 0.5}}
	b := []ScoredID{{DocID: "y", Score: 0.8}, {DocID: "z", Score: 0.4}}

	fused := rrfFuse(a, b, 10)
	require.Len(t, fused, 3)
	// y appears in both lists and must outrank single-list results.
	assert.Equal(t, "y", fused[0].DocID)

	truncated := rrfFuse(a, b, 2)
	assert.Len(t, truncated, 2)
}

func TestParseSearchType(t *testing.T) {
	st, ok := ParseSearchType("")
	assert.True(t, ok)
	assert.Equal(t, SearchVector, st)

	_, ok = ParseSearchType("vector")
	assert.True(t, ok)
	_, ok = ParseSearchType("fulltext")
	assert.True(t, ok)
	_, ok = ParseSearchType("hybrid")
	assert.True(t, ok)
	_, ok = ParseSearchType("bm25")
	assert.False(t, ok)
}

func TestLoaderIndexesThroughEmbed(t *testing.T) {
	s := NewInMemStore()
	embedded := 0
	embed := func(ctx context.Context, texts []string) ([][]float64, error) {
		embedded += len(texts)
		out := make([][]float64, len(texts))
		for i := range out {
			out[i] = []float64{1, 0, 0}
		}
		return out, nil
	}

	loader := NewLoader(s, embed, 2, nil)
	err := loader.LoadRaw(context.Background(), map[string]string{
		"doc_1": "first text",
		"doc_2": "second text",
		"doc_3": "third text",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, embedded)

	results, err := s.SearchVector(context.Background(), []float64{1, 0, 0}, "raw", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
