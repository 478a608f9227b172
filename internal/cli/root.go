// Package cli wires the raglens commands: latency benchmarking,
// recall evaluation, index loading, and cache management.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool

	rootCmd = &cobra.Command{
		Use:   "raglens",
		Short: "Embedding latency benchmarks and retrieval recall evaluation",
		Long: `raglens measures two things RAG systems care about:

- how fast embedding providers are, per model and batch size, and
- how well a retrieval setup surfaces the right document (recall@K).

Both use a content-addressed cache so interrupted runs resume without
re-issuing paid API calls.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Missing .env is normal; keys can come from the real
			// environment or Vault.
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}
