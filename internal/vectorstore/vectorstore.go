// Package vectorstore provides retrieval backends for the recall
// evaluator: a Qdrant HTTP client and an in-memory store for tests and
// offline runs. Both rank documents by id so the evaluator never sees
// backend-specific payloads.
package vectorstore

import (
	"context"
	"sort"
)

// SearchType selects the retrieval strategy.
type SearchType string

const (
	SearchVector   SearchType = "vector"
	SearchFullText SearchType = "fulltext"
	SearchHybrid   SearchType = "hybrid"
)

// ParseSearchType validates a search type string, defaulting to vector.
func ParseSearchType(s string) (SearchType, bool) {
	switch SearchType(s) {
	case SearchVector, "":
		return SearchVector, true
	case SearchFullText:
		return SearchFullText, true
	case SearchHybrid:
		return SearchHybrid, true
	default:
		return "", false
	}
}

// EmbedFunc turns texts into vectors. The evaluator's vector searches
// use it to embed the query with the same model that built the index.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// ScoredID is one ranked retrieval result.
type ScoredID struct {
	DocID string
	Score float64
}

// rrfFuse merges two ranked lists with reciprocal rank fusion. The
// constant 60 follows the standard RRF formulation; absolute scores
// from the two lists are not comparable, ranks are.
func rrfFuse(a, b []ScoredID, limit int) []ScoredID {
	scores := make(map[string]float64)
	order := make([]string, 0, len(a)+len(b))

	add := func(list []ScoredID) {
		for rank, item := range list {
			if _, seen := scores[item.DocID]; !seen {
				order = append(order, item.DocID)
			}
			scores[item.DocID] += 1.0 / float64(60+rank+1)
		}
	}
	add(a)
	add(b)

	fused := make([]ScoredID, 0, len(order))
	for _, id := range order {
		fused = append(fused, ScoredID{DocID: id, Score: scores[id]})
	}
	// Stable sort keeps first-seen order for equal scores, so fusion is
	// deterministic.
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })

	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

func ids(items []ScoredID) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.DocID
	}
	return out
}
