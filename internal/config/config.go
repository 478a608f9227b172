// Package config loads and validates the YAML configuration. The raw
// file passes through os.ExpandEnv before parsing, so ${VAR} works
// anywhere; provider API keys additionally support secret references
// ("env://NAME", "vault://path#key") resolved at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raglens/raglens/caches"
	"github.com/raglens/raglens/internal/observability"
	vaultsrc "github.com/raglens/raglens/internal/secret/vault"
	"github.com/raglens/raglens/internal/vectorstore/qdrant"
)

// Config is the root configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	Cache     caches.Config `yaml:"cache"`
	Providers []Provider    `yaml:"providers"`

	Benchmark Benchmark `yaml:"benchmark"`
	Eval      Eval      `yaml:"eval"`
	Report    Report    `yaml:"report"`

	RateLimit RateLimit                   `yaml:"rate_limit"`
	Tracing   observability.TracingConfig `yaml:"tracing"`
	Vault     vaultsrc.Config             `yaml:"vault"`

	// MetricsListen is an optional address for a Prometheus endpoint
	// during long runs (e.g. ":9464").
	MetricsListen string `yaml:"metrics_listen"`
}

// Provider configures one embedding provider. APIKey is a secret
// reference; a missing or unresolvable key skips the provider with a
// warning rather than failing the run.
type Provider struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Models  []string          `yaml:"models"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// Benchmark holds benchmark-run defaults, overridable by CLI flags.
type Benchmark struct {
	Dataset            string        `yaml:"dataset"`
	SamplesPerCategory int           `yaml:"samples_per_category"`
	BatchSizes         []int         `yaml:"batch_sizes"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	Seed               int64         `yaml:"seed"`
}

// Eval holds recall-evaluation settings.
type Eval struct {
	QueryDir      string        `yaml:"query_dir"`
	Backend       string        `yaml:"backend"`
	Qdrant        qdrant.Config `yaml:"qdrant"`
	EmbedProvider string        `yaml:"embed_provider"`
	EmbedModel    string        `yaml:"embed_model"`
	VariantsFile  string        `yaml:"variants_file"`
}

// Report configures result output.
type Report struct {
	Output   string `yaml:"output"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
}

// RateLimit bounds request rate per provider. Zero means unlimited.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given: the
// common hosted providers keyed from their conventional environment
// variables, plus a local Ollama.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cache: caches.Config{
			Dir:        defaultCacheDir(),
			DefaultTTL: 7 * 24 * time.Hour,
		},
		Providers: []Provider{
			{Name: "openai", Type: "openai", APIKey: "env://OPENAI_API_KEY",
				Models: []string{"text-embedding-3-small"}},
			{Name: "cohere", Type: "cohere", APIKey: "env://COHERE_API_KEY",
				Models: []string{"embed-english-v3.0"}},
			{Name: "voyage", Type: "voyage", APIKey: "env://VOYAGE_API_KEY",
				Models: []string{"voyage-3-lite"}},
			{Name: "gemini", Type: "gemini", APIKey: "env://GEMINI_API_KEY",
				Models: []string{"text-embedding-004"}},
			{Name: "ollama", Type: "ollama",
				Models: []string{"nomic-embed-text"}},
		},
		Benchmark: Benchmark{
			Dataset:            "wiki-snippets",
			SamplesPerCategory: 20,
			BatchSizes:         []int{1, 5, 25},
			MaxConcurrent:      5,
			CallTimeout:        30 * time.Second,
			MaxRetries:         3,
			Seed:               42,
		},
		Eval: Eval{
			QueryDir: "queries",
			Backend:  "qdrant",
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Load reads a config file, expands environment references, and merges
// it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would fail mid-run.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if p.Type == "" {
			return fmt.Errorf("provider %d: type is required", i)
		}
		name := p.Name
		if name == "" {
			name = p.Type
		}
		if seen[name] {
			return fmt.Errorf("duplicate provider name: %s", name)
		}
		seen[name] = true
	}

	for _, bs := range c.Benchmark.BatchSizes {
		if bs <= 0 {
			return fmt.Errorf("batch sizes must be positive, got %d", bs)
		}
	}
	if c.Benchmark.SamplesPerCategory < 0 {
		return fmt.Errorf("samples_per_category cannot be negative")
	}
	if c.Benchmark.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative")
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/raglens"
	}
	return ".raglens-cache"
}
