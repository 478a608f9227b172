package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/bench"
	"github.com/raglens/raglens/internal/eval"
	"github.com/raglens/raglens/internal/report"
	"github.com/raglens/raglens/internal/vectorstore"
	"github.com/raglens/raglens/internal/vectorstore/qdrant"
)

var (
	evalQueryVersion   string
	evalSummaryVersion string
	evalBackend        string
	evalSearchType     string
	evalNoCache        bool
	evalKs             []int
	evalOutput         string
	evalCacheDir       string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Compute recall@K for a query set against a document index",
	Long: `Evaluates retrieval quality: for each labeled (query, expected
document) pair, issues one retrieval at the largest K and reports the
fraction of queries whose expected document appears in the top K, for
each K threshold.

The index must be populated beforehand (see load-index). The
--summary-version flag selects which document representation to search:
"none" means the raw document text, anything else names a summary
variant.`,
	Example: `  raglens eval --query-version v1 --summary-version none
  raglens eval --query-version v2 --summary-version v3 --search-type hybrid
  raglens eval --query-version v1 --backend qdrant --k 1,5,10,20,30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		ctx := cmd.Context()

		if evalQueryVersion == "" {
			return fmt.Errorf("--query-version is required")
		}
		searchType, ok := vectorstore.ParseSearchType(evalSearchType)
		if !ok {
			return fmt.Errorf("unknown search type %q (want vector, fulltext, or hybrid)", evalSearchType)
		}

		indexVersion := evalSummaryVersion
		if indexVersion == "" || indexVersion == "none" {
			indexVersion = "raw"
		}

		queries, err := eval.LoadQuerySet(app.cfg.Eval.QueryDir, evalQueryVersion)
		if err != nil {
			return err
		}

		backendName := evalBackend
		if backendName == "" {
			backendName = app.cfg.Eval.Backend
		}
		if backendName != "qdrant" {
			return fmt.Errorf("unknown backend %q", backendName)
		}

		store, err := qdrant.New(app.cfg.Eval.Qdrant)
		if err != nil {
			return err
		}

		var embed vectorstore.EmbedFunc
		if searchType != vectorstore.SearchFullText {
			embed, err = app.embedFunc(ctx)
			if err != nil {
				return err
			}
		}

		retriever, err := vectorstore.NewRetriever(store, embed, searchType, indexVersion)
		if err != nil {
			return err
		}

		resultCache, err := app.openCache(evalCacheDir)
		if err != nil {
			return err
		}
		defer resultCache.Close()

		evaluator := eval.NewEvaluator(retriever, resultCache, app.logger)
		recall, err := evaluator.Run(ctx, eval.Config{
			QueryVersion: evalQueryVersion,
			IndexVersion: indexVersion,
			Backend:      backendName,
			SearchType:   string(searchType),
			Ks:           evalKs,
			NoCache:      evalNoCache,
			CacheTTL:     app.cfg.Cache.DefaultTTL,
		}, queries)
		if err != nil {
			return err
		}

		fmt.Println(report.RecallTable(recall))

		if evalOutput != "" {
			if err := report.WriteJSON(evalOutput, recall); err != nil {
				return err
			}
			app.logger.Info("recall report written", "path", evalOutput)
		}
		return nil
	},
}

// embedFunc builds the query-embedding function from the configured
// embed provider, which must match the model that built the index.
func (a *app) embedFunc(ctx context.Context) (vectorstore.EmbedFunc, error) {
	name := a.cfg.Eval.EmbedProvider
	model := a.cfg.Eval.EmbedModel
	if name == "" || model == "" {
		return nil, fmt.Errorf("eval.embed_provider and eval.embed_model must be configured for vector search")
	}

	inst, err := a.instance(ctx, name)
	if err != nil {
		return nil, err
	}

	runner := bench.NewRunner(bench.DefaultConfig(), bench.WithLogger(a.logger))
	return runner.EmbedFunc(inst, model), nil
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalQueryVersion, "query-version", "", "query set version (v1, v2, v3)")
	evalCmd.Flags().StringVar(&evalSummaryVersion, "summary-version", "none", "document representation: none (raw text) or a summary variant id")
	evalCmd.Flags().StringVar(&evalBackend, "backend", "", "retrieval backend")
	evalCmd.Flags().StringVar(&evalSearchType, "search-type", "vector", "search strategy: vector, fulltext, or hybrid")
	evalCmd.Flags().BoolVar(&evalNoCache, "no-cache", false, "bypass the retrieval-result cache")
	evalCmd.Flags().IntSliceVar(&evalKs, "k", nil, "recall thresholds (default 1,5,10,20,30)")
	evalCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write the recall report JSON to this path")
	evalCmd.Flags().StringVar(&evalCacheDir, "cache-dir", "", "cache directory (forces disk cache)")
}
