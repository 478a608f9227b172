package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/bench"
	"github.com/raglens/raglens/internal/corpus"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/observability"
	"github.com/raglens/raglens/internal/report"
	"github.com/raglens/raglens/internal/resilience"
)

var (
	benchProviders     []string
	benchModels        []string
	benchSamples       int
	benchBatchSizes    []int
	benchMaxConcurrent int
	benchCacheDir      string
	benchDataset       string
	benchNoCache       bool
	benchOutput        string
	benchS3Bucket      string
	benchMetricsListen string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure embedding latency per provider, model, and batch size",
	Long: `Runs concurrent embedding calls for every configured provider, model,
and batch size, then prints percentile latency and throughput.

Individual provider failures are reported in the table, not as a
non-zero exit; only configuration errors (no usable provider at all)
fail the command.`,
	Example: `  raglens benchmark
  raglens benchmark --providers openai,cohere --batch-sizes 1,5,25
  raglens benchmark --samples-per-category 50 --max-concurrent 10
  raglens benchmark --dataset news-headlines --output results.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		ctx := cmd.Context()

		bcfg := app.cfg.Benchmark
		if benchSamples > 0 {
			bcfg.SamplesPerCategory = benchSamples
		}
		if len(benchBatchSizes) > 0 {
			bcfg.BatchSizes = benchBatchSizes
		}
		if benchMaxConcurrent > 0 {
			bcfg.MaxConcurrent = benchMaxConcurrent
		}
		if benchDataset != "" {
			bcfg.Dataset = benchDataset
		}

		instances, err := app.instances(ctx, benchProviders)
		if err != nil {
			return err
		}
		if len(benchModels) > 0 {
			instances = filterModels(instances, benchModels)
		}
		if len(instances) == 0 {
			return fmt.Errorf("no providers selected")
		}

		store, err := app.openCache(benchCacheDir)
		if err != nil {
			return err
		}
		defer store.Close()

		tp, err := observability.InitTracing(ctx, app.cfg.Tracing)
		if err != nil {
			return err
		}
		defer tp.Shutdown(ctx)

		listen := benchMetricsListen
		if listen == "" {
			listen = app.cfg.MetricsListen
		}
		if listen != "" {
			go func() {
				if err := metrics.Serve(listen); err != nil {
					app.logger.Warn("metrics listener stopped", "error", err)
				}
			}()
		}

		loader := corpus.NewLoader(store, app.logger)
		loaded := loader.Load(ctx, bcfg.Dataset, bcfg.SamplesPerCategory, bcfg.Seed)

		var limiter *resilience.ProviderLimiter
		if app.cfg.RateLimit.PerSecond > 0 {
			limiter = resilience.NewProviderLimiter(app.cfg.RateLimit.PerSecond, app.cfg.RateLimit.Burst)
		}

		runner := bench.NewRunner(bench.Config{
			SamplesPerCategory: bcfg.SamplesPerCategory,
			BatchSizes:         bcfg.BatchSizes,
			MaxConcurrent:      bcfg.MaxConcurrent,
			CallTimeout:        bcfg.CallTimeout,
			MaxRetries:         bcfg.MaxRetries,
			NoCache:            benchNoCache,
			CacheTTL:           app.cfg.Cache.DefaultTTL,
		},
			bench.WithCache(store),
			bench.WithLogger(app.logger),
			bench.WithTracer(tp.Tracer()),
			bench.WithLimiter(limiter),
		)

		start := time.Now()
		results, err := runner.Run(ctx, instances, loaded.Texts)
		if err != nil {
			return err
		}

		fmt.Println(report.BenchmarkTable(results))

		run := report.NewRunReport(loaded.Dataset, loaded.Degraded, start, results)
		output := benchOutput
		if output == "" {
			output = app.cfg.Report.Output
		}
		if output != "" {
			if err := report.WriteJSON(output, run); err != nil {
				return err
			}
			app.logger.Info("results written", "path", output, "run_id", run.RunID)
		}

		bucket := benchS3Bucket
		if bucket == "" {
			bucket = app.cfg.Report.S3Bucket
		}
		if bucket != "" {
			s3cfg := report.DefaultS3Config()
			s3cfg.Bucket = bucket
			s3cfg.PathPrefix = app.cfg.Report.S3Prefix
			if app.cfg.Report.S3Region != "" {
				s3cfg.Region = app.cfg.Report.S3Region
			}
			uploader, err := report.NewS3Uploader(ctx, s3cfg)
			if err != nil {
				return err
			}
			key, err := uploader.Upload(ctx, run.RunID, run)
			if err != nil {
				return err
			}
			app.logger.Info("results uploaded", "bucket", bucket, "key", key)
		}
		return nil
	},
}

// filterModels narrows each provider to the requested models, dropping
// providers that support none of them.
func filterModels(instances []bench.Instance, models []string) []bench.Instance {
	var out []bench.Instance
	for _, inst := range instances {
		var keep []string
		for _, m := range models {
			if inst.Provider.SupportsModel(m) {
				keep = append(keep, m)
			}
		}
		if len(keep) == 0 {
			continue
		}
		inst.Config.Models = keep
		out = append(out, inst)
	}
	return out
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringSliceVar(&benchProviders, "providers", nil, "comma-separated provider names (default: all configured)")
	benchmarkCmd.Flags().StringSliceVar(&benchModels, "models", nil, "comma-separated model names (default: each provider's configured models)")
	benchmarkCmd.Flags().IntVar(&benchSamples, "samples-per-category", 0, "texts sampled per provider/model/batch-size tuple")
	benchmarkCmd.Flags().IntSliceVar(&benchBatchSizes, "batch-sizes", nil, "comma-separated batch sizes")
	benchmarkCmd.Flags().IntVar(&benchMaxConcurrent, "max-concurrent", 0, "max in-flight embedding calls")
	benchmarkCmd.Flags().StringVar(&benchCacheDir, "cache-dir", "", "cache directory (forces disk cache)")
	benchmarkCmd.Flags().StringVar(&benchDataset, "dataset", "", "input text dataset (see list-datasets)")
	benchmarkCmd.Flags().BoolVar(&benchNoCache, "no-cache", false, "bypass the embedding cache")
	benchmarkCmd.Flags().StringVarP(&benchOutput, "output", "o", "", "write results JSON to this path")
	benchmarkCmd.Flags().StringVar(&benchS3Bucket, "s3-bucket", "", "upload results JSON to this S3 bucket")
	benchmarkCmd.Flags().StringVar(&benchMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")
}
