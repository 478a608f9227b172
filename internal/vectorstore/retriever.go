package vectorstore

import (
	"context"
	"fmt"
)

// Backend is the minimal index surface a retriever needs. Both the
// Qdrant store and the in-memory store satisfy it.
type Backend interface {
	SearchVector(ctx context.Context, vector []float64, variant string, limit int) ([]ScoredID, error)
	SearchFullText(ctx context.Context, query, variant string, limit int) ([]ScoredID, error)
}

// Retriever adapts a Backend to the evaluator's search contract: it
// embeds the query when needed and applies the configured strategy.
type Retriever struct {
	backend    Backend
	embed      EmbedFunc
	searchType SearchType
	variant    string
}

// NewRetriever creates a retriever over the given backend. The embed
// function is required for vector and hybrid searches.
func NewRetriever(backend Backend, embed EmbedFunc, searchType SearchType, variant string) (*Retriever, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if (searchType == SearchVector || searchType == SearchHybrid) && embed == nil {
		return nil, fmt.Errorf("%s search requires an embedding function", searchType)
	}
	return &Retriever{
		backend:    backend,
		embed:      embed,
		searchType: searchType,
		variant:    variant,
	}, nil
}

// Search returns ranked document ids for the query.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]string, error) {
	switch r.searchType {
	case SearchVector:
		results, err := r.vectorSearch(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return ids(results), nil

	case SearchFullText:
		results, err := r.backend.SearchFullText(ctx, query, r.variant, limit)
		if err != nil {
			return nil, err
		}
		return ids(results), nil

	case SearchHybrid:
		vec, err := r.vectorSearch(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		full, err := r.backend.SearchFullText(ctx, query, r.variant, limit)
		if err != nil {
			return nil, err
		}
		return ids(rrfFuse(vec, full, limit)), nil

	default:
		return nil, fmt.Errorf("unknown search type: %s", r.searchType)
	}
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, limit int) ([]ScoredID, error) {
	vectors, err := r.embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	return r.backend.SearchVector(ctx, vectors[0], r.variant, limit)
}
