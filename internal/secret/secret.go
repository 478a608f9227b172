// Package secret resolves provider API keys from pluggable sources.
// Keys in configuration are written as scheme references such as
// "env://OPENAI_API_KEY" or "vault://secret/data/embeddings#openai";
// a bare value is treated as a static secret.
package secret

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Source retrieves secret values by path.
type Source interface {
	// Get retrieves the secret value for the given path.
	Get(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the source.
	Close() error
}

// Resolver routes secret references to registered sources by scheme.
type Resolver struct {
	sources map[string]Source
	mu      sync.RWMutex
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{sources: make(map[string]Source)}
}

// Register registers a source for a scheme (e.g., "env", "vault").
func (r *Resolver) Register(scheme string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[scheme] = src
}

// Resolve retrieves a secret by parsing the reference scheme. A
// reference without a scheme is returned as-is.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	parts := strings.SplitN(ref, "://", 2)
	if len(parts) != 2 {
		return ref, nil
	}

	scheme, path := parts[0], parts[1]

	r.mu.RLock()
	src, ok := r.sources[scheme]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("no secret source registered for scheme: %s", scheme)
	}

	return src.Get(ctx, path)
}

// Close closes all registered sources.
func (r *Resolver) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []string
	for scheme, src := range r.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", scheme, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close secret sources: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CachedSource decorates a Source with in-memory caching so repeated
// key resolution (one per provider per run) does not hammer Vault.
type CachedSource struct {
	inner Source
	cache *gocache.Cache
}

// NewCachedSource creates a caching decorator with the given TTL.
func NewCachedSource(inner Source, defaultTTL time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: gocache.New(defaultTTL, defaultTTL*2),
	}
}

// Get retrieves a secret from the cache or delegates to the inner source.
func (s *CachedSource) Get(ctx context.Context, path string) (string, error) {
	if val, found := s.cache.Get(path); found {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}

	val, err := s.inner.Get(ctx, path)
	if err != nil {
		return "", err
	}

	s.cache.Set(path, val, gocache.DefaultExpiration)
	return val, nil
}

// Close closes the inner source.
func (s *CachedSource) Close() error {
	return s.inner.Close()
}
