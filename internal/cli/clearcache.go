package cli

import (
	"github.com/spf13/cobra"
)

var clearCacheDir string

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove every cached embedding and retrieval result",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		store, err := app.openCache(clearCacheDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		app.logger.Info("cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCacheCmd)

	clearCacheCmd.Flags().StringVar(&clearCacheDir, "cache-dir", "", "cache directory (forces disk cache)")
}
