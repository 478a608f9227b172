package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/vectorstore"
	"github.com/raglens/raglens/internal/vectorstore/qdrant"
)

var (
	loadVariantsFile string
	loadBatchSize    int
)

var loadIndexCmd = &cobra.Command{
	Use:   "load-index",
	Short: "Embed and index summary variants for recall evaluation",
	Long: `Reads document summary variants from a JSON file (an array of
{document_id, version, text} objects), embeds them with the configured
embed provider, and upserts them into the Qdrant collection. Summary
generation itself happens elsewhere; this only indexes the output.`,
	Example: `  raglens load-index --variants-file variants/v3.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		ctx := cmd.Context()

		file := loadVariantsFile
		if file == "" {
			file = app.cfg.Eval.VariantsFile
		}
		if file == "" {
			return fmt.Errorf("--variants-file is required")
		}

		variants, err := vectorstore.LoadVariantFile(file)
		if err != nil {
			return err
		}

		store, err := qdrant.New(app.cfg.Eval.Qdrant)
		if err != nil {
			return err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return err
		}

		embed, err := app.embedFunc(ctx)
		if err != nil {
			return err
		}

		loader := vectorstore.NewLoader(store, embed, loadBatchSize, app.logger)
		return loader.LoadVariants(ctx, variants)
	},
}

func init() {
	rootCmd.AddCommand(loadIndexCmd)

	loadIndexCmd.Flags().StringVar(&loadVariantsFile, "variants-file", "", "JSON file of summary variants to index")
	loadIndexCmd.Flags().IntVar(&loadBatchSize, "batch-size", 32, "embedding batch size while indexing")
}
