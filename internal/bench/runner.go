package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	icache "github.com/raglens/raglens/internal/cache"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/observability"
	"github.com/raglens/raglens/internal/resilience"
	"github.com/raglens/raglens/internal/stats"
	"github.com/raglens/raglens/pkg/cache"
	lerrors "github.com/raglens/raglens/pkg/errors"
	"github.com/raglens/raglens/pkg/provider"
	"github.com/raglens/raglens/pkg/types"
)

// cachedEmbedding is the serialized cache value for one chunk.
type cachedEmbedding struct {
	Vectors [][]float64 `json:"vectors"`
}

// Runner executes benchmark runs. All shared state (cache, results
// accumulator) is written under its own synchronization; the runner
// itself is safe for a single Run at a time.
type Runner struct {
	cfg     Config
	cache   cache.Cache
	keys    *icache.KeyGenerator
	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *resilience.ProviderLimiter
	client  *http.Client
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache sets the cache backend. Nil disables caching.
func WithCache(c cache.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithTracer sets the tracer for per-call spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLimiter sets a per-provider rate limiter.
func WithLimiter(l *resilience.ProviderLimiter) Option {
	return func(r *Runner) { r.limiter = l }
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.client = c }
}

// NewRunner creates a benchmark runner.
func NewRunner(cfg Config, opts ...Option) *Runner {
	def := DefaultConfig()
	if cfg.SamplesPerCategory <= 0 {
		cfg.SamplesPerCategory = def.SamplesPerCategory
	}
	if len(cfg.BatchSizes) == 0 {
		cfg.BatchSizes = def.BatchSizes
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	r := &Runner{
		cfg:    cfg,
		keys:   icache.NewKeyGenerator(""),
		logger: slog.Default(),
		tracer: otel.Tracer(observability.TracerName),
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run benchmarks every provider x model x batch-size combination over
// the given texts. Per-provider failures are recorded in the results,
// never returned as errors; Run fails only when no provider is usable
// at all.
func (r *Runner) Run(ctx context.Context, instances []Instance, texts []string) ([]types.BenchmarkResult, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts to benchmark")
	}

	sem := resilience.NewSemaphore(r.cfg.MaxConcurrent)

	var results []types.BenchmarkResult
	usable := 0

	for _, inst := range instances {
		name := inst.Provider.Name()
		models := inst.Config.Models
		if len(models) == 0 {
			models = inst.Provider.SupportedModels()
		}

		if provider.RequiresCredentials(inst.Config.Type) && inst.Config.APIKey == "" {
			r.logger.Warn("provider has no API key, skipping",
				"provider", name)
			for _, model := range models {
				for _, bs := range r.cfg.BatchSizes {
					results = append(results, types.BenchmarkResult{
						Provider:      name,
						Model:         model,
						BatchSize:     bs,
						Status:        types.StatusSkipped,
						FailureReason: "no API key configured",
					})
				}
			}
			continue
		}
		usable++

		for _, model := range models {
			results = append(results, r.runModel(ctx, sem, inst, model, texts)...)
		}
	}

	if usable == 0 {
		return results, fmt.Errorf("no provider with valid credentials configured")
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		return a.BatchSize < b.BatchSize
	})
	return results, nil
}

// runModel benchmarks every batch size for one provider/model pair.
// A permanent error (bad credentials, malformed request) fails the
// pair and skips its remaining batch sizes.
func (r *Runner) runModel(ctx context.Context, sem *resilience.Semaphore, inst Instance, model string, texts []string) []types.BenchmarkResult {
	name := inst.Provider.Name()
	results := make([]types.BenchmarkResult, 0, len(r.cfg.BatchSizes))

	var permanentErr error
	for _, bs := range r.cfg.BatchSizes {
		if permanentErr != nil {
			results = append(results, types.BenchmarkResult{
				Provider:      name,
				Model:         model,
				BatchSize:     bs,
				Status:        types.StatusFailed,
				FailureReason: permanentErr.Error(),
			})
			continue
		}

		result, permErr := r.runTuple(ctx, sem, inst, model, bs, texts)
		results = append(results, result)
		if permErr != nil {
			permanentErr = permErr
			r.logger.Error("permanent provider error, skipping remaining batch sizes",
				"provider", name,
				"model", model,
				"error", permErr)
		}
	}
	return results
}

// runTuple benchmarks one (provider, model, batch-size) tuple. Chunks
// run concurrently under the shared semaphore; one chunk's failure
// never aborts the others, except a permanent error which
// short-circuits chunks that have not started their call yet.
func (r *Runner) runTuple(ctx context.Context, sem *resilience.Semaphore, inst Instance, model string, batchSize int, texts []string) (types.BenchmarkResult, error) {
	name := inst.Provider.Name()
	chunks := Chunk(texts, batchSize)

	r.logger.Info("benchmarking",
		"provider", name,
		"model", model,
		"batch_size", batchSize,
		"chunks", len(chunks))

	var (
		mu      sync.Mutex
		samples []types.LatencySample
		permErr error
	)

	start := time.Now()
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()

			mu.Lock()
			stop := permErr
			mu.Unlock()

			var sample types.LatencySample
			if stop != nil {
				sample = types.LatencySample{
					Provider:  name,
					Model:     model,
					BatchSize: batchSize,
					TextCount: len(chunk),
					Error:     stop.Error(),
					Timestamp: time.Now(),
				}
			} else {
				var callErr error
				sample, callErr = r.runChunk(ctx, sem, inst, model, batchSize, chunk)
				if callErr != nil && lerrors.IsPermanent(callErr) {
					mu.Lock()
					if permErr == nil {
						permErr = callErr
					}
					mu.Unlock()
				}
			}

			r.record(sample)
			mu.Lock()
			samples = append(samples, sample)
			mu.Unlock()
		}(chunk)
	}
	wg.Wait()

	result := stats.Aggregate(name, model, batchSize, samples, time.Since(start))
	return result, permErr
}

// runChunk embeds one chunk, consulting the cache first. A cache hit
// issues zero network calls and produces a zero-duration sample marked
// CacheHit.
func (r *Runner) runChunk(ctx context.Context, sem *resilience.Semaphore, inst Instance, model string, batchSize int, chunk []string) (types.LatencySample, error) {
	name := inst.Provider.Name()
	sample := types.LatencySample{
		Provider:  name,
		Model:     model,
		BatchSize: batchSize,
		TextCount: len(chunk),
		Timestamp: time.Now(),
	}

	var key string
	if r.cache != nil && !r.cfg.NoCache {
		key = r.keys.Generate("embed",
			name, model, strconv.Itoa(batchSize), icache.HashContent(chunk...))
		if data, err := r.cache.Get(ctx, key); err == nil && data != nil {
			var entry cachedEmbedding
			if err := json.Unmarshal(data, &entry); err == nil && len(entry.Vectors) == len(chunk) {
				metrics.CacheOperationsTotal.WithLabelValues("hit").Inc()
				sample.Success = true
				sample.CacheHit = true
				return sample, nil
			}
		}
		metrics.CacheOperationsTotal.WithLabelValues("miss").Inc()
	}

	if err := sem.Acquire(ctx); err != nil {
		sample.Error = err.Error()
		return sample, err
	}
	defer sem.Release()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, name); err != nil {
			sample.Error = err.Error()
			return sample, err
		}
	}

	vectors, duration, err := r.embedWithRetry(ctx, inst, model, chunk)
	sample.Duration = duration
	if err != nil {
		sample.Error = err.Error()
		return sample, err
	}

	sample.Success = true
	if key != "" {
		data, merr := json.Marshal(cachedEmbedding{Vectors: vectors})
		if merr == nil {
			// Best effort; a lost write means one recomputation next run.
			_ = r.cache.Set(ctx, key, data, r.cfg.CacheTTL)
		}
	}
	return sample, nil
}

// EmbedFunc returns an embedding function bound to one provider and
// model, sharing the runner's transport, timeout, and retry settings.
// The recall evaluator and the index loader embed through this.
func (r *Runner) EmbedFunc(inst Instance, model string) func(ctx context.Context, texts []string) ([][]float64, error) {
	return func(ctx context.Context, texts []string) ([][]float64, error) {
		vectors, _, err := r.embedWithRetry(ctx, inst, model, texts)
		return vectors, err
	}
}

// embedWithRetry runs one embedding call with bounded exponential
// backoff on retryable errors. The returned duration covers only the
// final attempt, so retries do not inflate latency percentiles.
func (r *Runner) embedWithRetry(ctx context.Context, inst Instance, model string, chunk []string) ([][]float64, time.Duration, error) {
	var lastErr error
	var duration time.Duration

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryBaseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, duration, ctx.Err()
			}
		}

		vectors, d, err := r.embedOnce(ctx, inst, model, chunk)
		duration = d
		if err == nil {
			return vectors, duration, nil
		}
		lastErr = err

		if !lerrors.IsRetryable(err) {
			break
		}
		r.logger.Debug("embedding call failed, retrying",
			"provider", inst.Provider.Name(),
			"model", model,
			"attempt", attempt+1,
			"error", err)
	}
	return nil, duration, lastErr
}

// embedOnce performs a single timed embedding call.
func (r *Runner) embedOnce(ctx context.Context, inst Instance, model string, chunk []string) ([][]float64, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	name := inst.Provider.Name()
	callCtx, span := observability.StartEmbedSpan(callCtx, r.tracer, name, model, len(chunk))
	defer span.End()

	req := &types.EmbeddingRequest{Model: model, Input: chunk}
	httpReq, err := inst.Provider.BuildEmbedRequest(callCtx, req)
	if err != nil {
		observability.RecordError(span, err)
		return nil, 0, err
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			err = lerrors.NewTimeoutError(name, model, "request timed out")
		}
		observability.RecordError(span, err)
		return nil, duration, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		mapped := inst.Provider.MapError(resp.StatusCode, body)
		observability.RecordError(span, mapped)
		return nil, duration, mapped
	}

	parsed, err := inst.Provider.ParseEmbedResponse(resp)
	if err != nil {
		observability.RecordError(span, err)
		return nil, duration, err
	}

	vectors := parsed.Vectors()
	if len(vectors) != len(chunk) {
		err = fmt.Errorf("provider %s returned %d vectors for %d inputs", name, len(vectors), len(chunk))
		observability.RecordError(span, err)
		return nil, duration, err
	}
	return vectors, duration, nil
}

// record publishes one sample to the Prometheus counters.
func (r *Runner) record(s types.LatencySample) {
	status := "error"
	switch {
	case s.Success && s.CacheHit:
		status = "cache_hit"
	case s.Success:
		status = "ok"
	}
	metrics.EmbedRequestsTotal.WithLabelValues(
		s.Provider, s.Model, strconv.Itoa(s.BatchSize), status).Inc()
	if s.Success && !s.CacheHit {
		metrics.EmbedLatencySeconds.WithLabelValues(
			s.Provider, s.Model, strconv.Itoa(s.BatchSize)).Observe(s.Duration.Seconds())
	}
}
