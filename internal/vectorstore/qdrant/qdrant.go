// Package qdrant implements retrieval over a Qdrant collection via its
// HTTP API. Points carry the source document id and summary variant in
// their payload; the point id itself is an opaque UUID.
package qdrant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/raglens/raglens/internal/vectorstore"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	Address    string        `yaml:"address"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Store is a Qdrant-backed document index.
type Store struct {
	client     *http.Client
	apiBase    string
	apiKey     string
	collection string
	dimension  int
}

// New creates a Qdrant store.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}

	address := cfg.Address
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	if cfg.Collection == "" {
		cfg.Collection = "raglens_docs"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		apiBase:    address,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}

	createBody := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", s.apiBase, s.collection)
	return s.do(ctx, http.MethodPut, url, createBody, nil)
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	var result struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/exists", s.apiBase, s.collection)
	if err := s.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return false, err
	}
	return result.Result.Exists, nil
}

// Upsert writes documents into the collection. Point ids are derived
// deterministically from (doc_id, variant), so re-indexing the same
// variant overwrites its points instead of accumulating duplicates
// that would consume top-K slots in search results.
func (s *Store) Upsert(ctx context.Context, docs []vectorstore.UpsertDoc) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]any, 0, len(docs))
	for _, doc := range docs {
		points = append(points, map[string]any{
			"id":     pointID(doc.DocID, doc.Variant),
			"vector": doc.Vector,
			"payload": map[string]any{
				"doc_id":  doc.DocID,
				"variant": doc.Variant,
				"text":    doc.Text,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points", s.apiBase, s.collection)
	return s.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
}

// SearchVector runs a nearest-neighbor search restricted to one
// variant, returning document ids best first.
func (s *Store) SearchVector(ctx context.Context, vector []float64, variant string, limit int) ([]vectorstore.ScoredID, error) {
	searchBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter":       variantFilter(variant),
	}

	var result struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.apiBase, s.collection)
	if err := s.do(ctx, http.MethodPost, url, searchBody, &result); err != nil {
		return nil, err
	}

	out := make([]vectorstore.ScoredID, 0, len(result.Result))
	for _, r := range result.Result {
		docID, _ := r.Payload["doc_id"].(string)
		if docID == "" {
			continue
		}
		out = append(out, vectorstore.ScoredID{DocID: docID, Score: r.Score})
	}
	return out, nil
}

// SearchFullText scrolls points whose text matches the query with
// Qdrant's full-text match filter. Scroll has no relevance score; the
// scroll order is used as the ranking.
func (s *Store) SearchFullText(ctx context.Context, query, variant string, limit int) ([]vectorstore.ScoredID, error) {
	filter := variantFilter(variant)
	must := filter["must"].([]map[string]any)
	must = append(must, map[string]any{
		"key":   "text",
		"match": map[string]any{"text": query},
	})
	filter["must"] = must

	scrollBody := map[string]any{
		"filter":       filter,
		"limit":        limit,
		"with_payload": true,
	}

	var result struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/scroll", s.apiBase, s.collection)
	if err := s.do(ctx, http.MethodPost, url, scrollBody, &result); err != nil {
		return nil, err
	}

	out := make([]vectorstore.ScoredID, 0, len(result.Result.Points))
	for rank, p := range result.Result.Points {
		docID, _ := p.Payload["doc_id"].(string)
		if docID == "" {
			continue
		}
		out = append(out, vectorstore.ScoredID{DocID: docID, Score: 1.0 / float64(rank+1)})
	}
	return out, nil
}

// pointID derives a stable UUID for one (doc_id, variant) pair.
func pointID(docID, variant string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(variant+"/"+docID)).String()
}

func variantFilter(variant string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "variant",
				"match": map[string]any{"value": variant},
			},
		},
	}
}

func (s *Store) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("qdrant request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
