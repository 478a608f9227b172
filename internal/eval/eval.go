// Package eval computes recall@K over a labeled query set and a
// versioned document index. The evaluation is a stateless batch
// computation: given the same index snapshot it is idempotent and
// replayable.
package eval

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	icache "github.com/raglens/raglens/internal/cache"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/pkg/cache"
	"github.com/raglens/raglens/pkg/types"
)

// DefaultKs is the standard set of recall thresholds.
var DefaultKs = []int{1, 5, 10, 20, 30}

// Retriever returns ranked document ids for a query. Implementations
// are supplied externally (vector store backends, test stubs).
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Config describes one evaluation pass.
type Config struct {
	// QueryVersion tags the query-generation strategy being evaluated.
	QueryVersion string

	// IndexVersion names the document representation: "raw" or a
	// summary variant id.
	IndexVersion string

	// Backend and SearchType describe the retriever, for reporting and
	// cache keying only.
	Backend    string
	SearchType string

	// Ks lists the recall thresholds. Empty means DefaultKs.
	Ks []int

	// NoCache disables retrieval-result caching for this pass.
	NoCache bool

	// CacheTTL is the lifetime of cached retrieval results.
	CacheTTL time.Duration
}

// Evaluator runs recall evaluations against a retriever.
type Evaluator struct {
	retriever Retriever
	cache     cache.Cache
	keys      *icache.KeyGenerator
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator. The cache may be nil.
func NewEvaluator(retriever Retriever, c cache.Cache, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		retriever: retriever,
		cache:     c,
		keys:      icache.NewKeyGenerator(""),
		logger:    logger,
	}
}

// Run evaluates recall@K for every query. Each query issues exactly one
// retrieval call at k = max(Ks); hits at smaller K come from truncating
// the same result list. A query whose expected document never appears
// counts as a miss at every K and stays in the denominator; a failed
// retrieval is treated the same way and logged, never aborts the pass.
func (e *Evaluator) Run(ctx context.Context, cfg Config, queries []types.QueryRecord) (*types.RecallReport, error) {
	ks := cfg.Ks
	if len(ks) == 0 {
		ks = DefaultKs
	}
	ks = append([]int(nil), ks...)
	sort.Ints(ks)
	kmax := ks[len(ks)-1]

	report := &types.RecallReport{
		QueryVersion: cfg.QueryVersion,
		IndexVersion: cfg.IndexVersion,
		Backend:      cfg.Backend,
		SearchType:   cfg.SearchType,
		Queries:      len(queries),
		Recall:       make(map[int]float64, len(ks)),
		PerQuery:     make([]types.QueryOutcome, 0, len(queries)),
	}

	hits := make(map[int]int, len(ks))
	for _, q := range queries {
		ids, err := e.search(ctx, cfg, q.Query, kmax)
		status := "ok"
		if err != nil {
			status = "error"
			e.logger.Warn("retrieval failed, counting query as miss",
				"query_id", q.ID,
				"error", err)
			ids = nil
		}
		metrics.RetrievalRequestsTotal.WithLabelValues(cfg.Backend, cfg.SearchType, status).Inc()

		outcome := score(q, ids, ks)
		for _, k := range ks {
			if outcome.HitAt[k] {
				hits[k]++
			}
		}
		report.PerQuery = append(report.PerQuery, outcome)
	}

	if len(queries) > 0 {
		for _, k := range ks {
			report.Recall[k] = float64(hits[k]) / float64(len(queries))
		}
	} else {
		for _, k := range ks {
			report.Recall[k] = 0
		}
	}
	return report, nil
}

// score locates the expected document in the ranked list and marks
// hit/miss per threshold. Rank is 1-based; 0 means not found in the
// kmax window.
func score(q types.QueryRecord, ids []string, ks []int) types.QueryOutcome {
	outcome := types.QueryOutcome{
		QueryID:    q.ID,
		ExpectedID: q.ExpectedID,
		HitAt:      make(map[int]bool, len(ks)),
	}

	for i, id := range ids {
		if id == q.ExpectedID {
			outcome.Rank = i + 1
			break
		}
	}

	for _, k := range ks {
		outcome.HitAt[k] = outcome.Rank > 0 && outcome.Rank <= k
	}
	return outcome
}

// search issues one retrieval call, going through the cache when
// enabled. Cached results are keyed by every input that changes the
// ranking, so an index or strategy change never replays stale results.
func (e *Evaluator) search(ctx context.Context, cfg Config, query string, limit int) ([]string, error) {
	if e.cache == nil || cfg.NoCache {
		return e.retriever.Search(ctx, query, limit)
	}

	key := e.keys.Generate("search",
		cfg.Backend, cfg.SearchType, cfg.IndexVersion, strconv.Itoa(limit), icache.HashContent(query))

	data, _, err := cache.GetOrCompute(ctx, e.cache, key, cfg.CacheTTL, func(ctx context.Context) ([]byte, error) {
		ids, err := e.retriever.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ids)
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
