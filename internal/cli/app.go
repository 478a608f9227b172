package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/raglens/raglens/caches"
	"github.com/raglens/raglens/internal/bench"
	"github.com/raglens/raglens/internal/config"
	"github.com/raglens/raglens/internal/observability"
	"github.com/raglens/raglens/internal/secret"
	"github.com/raglens/raglens/internal/secret/env"
	vaultsrc "github.com/raglens/raglens/internal/secret/vault"
	"github.com/raglens/raglens/pkg/cache"
	"github.com/raglens/raglens/pkg/provider"
	"github.com/raglens/raglens/providers"
)

// app holds the shared pieces every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *secret.Resolver
}

// newApp loads configuration and builds the logger and secret
// resolver. Configuration errors fail fast here, before any network
// activity.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:      observability.ParseLevel(level),
		Output:     os.Stderr,
		JSONFormat: logJSON || cfg.LogJSON,
	})
	slog.SetDefault(logger)

	resolver := secret.NewResolver()
	resolver.Register("env", secret.NewCachedSource(env.New(), time.Hour))
	if cfg.Vault.Address != "" {
		vs, err := vaultsrc.New(cfg.Vault)
		if err != nil {
			return nil, err
		}
		resolver.Register("vault", secret.NewCachedSource(vs, time.Hour))
	}

	return &app{cfg: cfg, logger: logger, resolver: resolver}, nil
}

// instances creates provider adapters from configuration, resolving
// API-key references. A provider whose key cannot be resolved still
// gets an instance with an empty key; the runner reports it as skipped
// instead of dropping it from the results.
func (a *app) instances(ctx context.Context, only []string) ([]bench.Instance, error) {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}

	var out []bench.Instance
	for _, p := range a.cfg.Providers {
		name := p.Name
		if name == "" {
			name = p.Type
		}
		if len(wanted) > 0 && !wanted[name] {
			continue
		}

		apiKey := ""
		if p.APIKey != "" {
			resolved, err := a.resolver.Resolve(ctx, p.APIKey)
			if err != nil {
				a.logger.Warn("could not resolve provider API key",
					"provider", name,
					"error", err)
			} else {
				apiKey = resolved
			}
		}

		pcfg := provider.Config{
			Name:    name,
			Type:    p.Type,
			APIKey:  apiKey,
			BaseURL: p.BaseURL,
			Models:  p.Models,
			Timeout: p.Timeout,
			Headers: p.Headers,
		}
		inst, err := providers.Create(pcfg)
		if err != nil {
			return nil, err
		}
		out = append(out, bench.Instance{Provider: inst, Config: pcfg})
	}
	return out, nil
}

// instance returns a single named provider adapter.
func (a *app) instance(ctx context.Context, name string) (bench.Instance, error) {
	insts, err := a.instances(ctx, []string{name})
	if err != nil {
		return bench.Instance{}, err
	}
	if len(insts) == 0 {
		return bench.Instance{}, &notConfiguredError{name}
	}
	return insts[0], nil
}

type notConfiguredError struct{ name string }

func (e *notConfiguredError) Error() string {
	return "provider not configured: " + e.name
}

// openCache builds the cache backend, honoring per-command overrides.
func (a *app) openCache(dirOverride string) (cache.Cache, error) {
	ccfg := a.cfg.Cache
	if dirOverride != "" {
		ccfg.Dir = dirOverride
		ccfg.Type = cache.TypeDisk
	}
	return caches.New(ccfg)
}

// close releases app resources.
func (a *app) close() {
	if err := a.resolver.Close(); err != nil {
		a.logger.Warn("closing secret sources", "error", err)
	}
}
