package types

// QueryRecord is one labeled retrieval query: the query text and the
// document the retriever is expected to surface. Records are versioned
// by the strategy that generated them and are immutable ground truth.
type QueryRecord struct {
	ID         string `json:"id"`
	Query      string `json:"query"`
	ExpectedID string `json:"expected_id"`
	Version    string `json:"version"`
}

// QueryOutcome records where the expected document landed for one query.
// Rank is 1-based; 0 means the expected document never appeared in the
// largest retrieved window, which still counts as a miss at every K.
type QueryOutcome struct {
	QueryID    string       `json:"query_id"`
	ExpectedID string       `json:"expected_id"`
	Rank       int          `json:"rank"`
	HitAt      map[int]bool `json:"hit_at"`
}

// RecallReport holds recall@K over a fixed (query set, index) pair.
// Recall is monotonically non-decreasing in K.
type RecallReport struct {
	QueryVersion string          `json:"query_version"`
	IndexVersion string          `json:"index_version"`
	Backend      string          `json:"backend"`
	SearchType   string          `json:"search_type"`
	Queries      int             `json:"queries"`
	Recall       map[int]float64 `json:"recall"`
	PerQuery     []QueryOutcome  `json:"per_query"`
}

// DocumentSummaryVariant is a derived representation of a source
// document, keyed by (document id, summary strategy version). Variants
// are produced by an external summarization step and consumed here only
// as indexing input.
type DocumentSummaryVariant struct {
	DocumentID string `json:"document_id"`
	Version    string `json:"version"`
	Text       string `json:"text"`
}
