package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// InMemDoc is one document held by the in-memory store.
type InMemDoc struct {
	DocID   string
	Variant string
	Text    string
	Vector  []float64
}

// InMemStore is a small index for tests and offline evaluation runs.
// Vector search uses cosine similarity; full-text search uses token
// overlap. Both rank deterministically, ties broken by document id.
type InMemStore struct {
	mu   sync.RWMutex
	docs []InMemDoc
}

// NewInMemStore creates an empty in-memory store.
func NewInMemStore() *InMemStore {
	return &InMemStore{}
}

// Add indexes documents.
func (s *InMemStore) Add(docs ...InMemDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
}

// Upsert satisfies the loader's write interface.
func (s *InMemStore) Upsert(ctx context.Context, docs []UpsertDoc) error {
	for _, d := range docs {
		s.Add(InMemDoc(d))
	}
	return nil
}

// SearchVector ranks documents of the given variant by cosine
// similarity to the query vector.
func (s *InMemStore) SearchVector(ctx context.Context, vector []float64, variant string, limit int) ([]ScoredID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []ScoredID
	for _, doc := range s.docs {
		if doc.Variant != variant || len(doc.Vector) == 0 {
			continue
		}
		results = append(results, ScoredID{DocID: doc.DocID, Score: cosine(vector, doc.Vector)})
	}
	return rank(results, limit), nil
}

// SearchFullText ranks documents of the given variant by query token
// overlap.
func (s *InMemStore) SearchFullText(ctx context.Context, query, variant string, limit int) ([]ScoredID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTokens := tokenize(query)
	var results []ScoredID
	for _, doc := range s.docs {
		if doc.Variant != variant {
			continue
		}
		score := overlap(queryTokens, tokenize(doc.Text))
		if score > 0 {
			results = append(results, ScoredID{DocID: doc.DocID, Score: score})
		}
	}
	return rank(results, limit), nil
}

func rank(results []ScoredID, limit int) []ScoredID {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,!?;:\"'()[]")
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}

func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for tok := range query {
		if doc[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
