package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"

	"github.com/raglens/raglens/pkg/types"
)

// Upserter is the write side of an index. The Qdrant store satisfies
// it; the in-memory store is populated directly.
type Upserter interface {
	Upsert(ctx context.Context, docs []UpsertDoc) error
}

// UpsertDoc is one record headed for an index.
type UpsertDoc struct {
	DocID   string
	Variant string
	Text    string
	Vector  []float64
}

// Loader embeds documents and writes them into an index so the recall
// evaluator has something to search. Summary variants are consumed
// as-is; this tool never generates them.
type Loader struct {
	upserter  Upserter
	embed     EmbedFunc
	batchSize int
	logger    *slog.Logger
}

// NewLoader creates an index loader.
func NewLoader(upserter Upserter, embed EmbedFunc, batchSize int, logger *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		upserter:  upserter,
		embed:     embed,
		batchSize: batchSize,
		logger:    logger,
	}
}

// LoadVariants embeds and indexes summary variants under their variant
// version.
func (l *Loader) LoadVariants(ctx context.Context, variants []types.DocumentSummaryVariant) error {
	docs := make([]UpsertDoc, 0, len(variants))
	for _, v := range variants {
		docs = append(docs, UpsertDoc{DocID: v.DocumentID, Variant: v.Version, Text: v.Text})
	}
	return l.load(ctx, docs)
}

// LoadRaw embeds and indexes raw document texts under the "raw"
// variant.
func (l *Loader) LoadRaw(ctx context.Context, texts map[string]string) error {
	docs := make([]UpsertDoc, 0, len(texts))
	for id, text := range texts {
		docs = append(docs, UpsertDoc{DocID: id, Variant: "raw", Text: text})
	}
	return l.load(ctx, docs)
}

func (l *Loader) load(ctx context.Context, docs []UpsertDoc) error {
	for start := 0; start < len(docs); start += l.batchSize {
		end := start + l.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}

		vectors, err := l.embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := l.upserter.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		l.logger.Debug("indexed batch", "from", start, "to", end)
	}

	l.logger.Info("index load complete", "documents", len(docs))
	return nil
}

// LoadVariantFile reads summary variants from a JSON file: an array of
// {document_id, version, text} objects.
func LoadVariantFile(path string) ([]types.DocumentSummaryVariant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variants %s: %w", path, err)
	}

	var variants []types.DocumentSummaryVariant
	if err := json.Unmarshal(data, &variants); err != nil {
		return nil, fmt.Errorf("parse variants %s: %w", path, err)
	}

	for i, v := range variants {
		if v.DocumentID == "" || v.Text == "" {
			return nil, fmt.Errorf("variants %s: record %d missing document_id or text", path, i)
		}
	}
	return variants, nil
}
