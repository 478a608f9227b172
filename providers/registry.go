// Package providers provides a unified registry for all embedding
// provider implementations, so the runner can create adapters from
// configuration without branching on provider names.
package providers

import (
	"fmt"
	"sync"

	"github.com/raglens/raglens/pkg/provider"
	"github.com/raglens/raglens/providers/cohere"
	"github.com/raglens/raglens/providers/gemini"
	"github.com/raglens/raglens/providers/ollama"
	"github.com/raglens/raglens/providers/openai"
	"github.com/raglens/raglens/providers/voyage"
)

var (
	registry     = make(map[string]provider.Factory)
	registryOnce sync.Once
	registryMu   sync.RWMutex
)

// Register registers a provider factory with the given type name.
func Register(providerType string, factory provider.Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[providerType] = factory
}

// Get returns the factory for the given provider type.
func Get(providerType string) (provider.Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[providerType]
	return f, ok
}

// Create creates a provider instance from configuration.
func Create(cfg provider.Config) (provider.EmbeddingProvider, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s (available: %v)", cfg.Type, List())
	}

	return factory(cfg)
}

// List returns all registered provider type names.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// RegisterBuiltins registers all built-in provider factories.
// This is called automatically on first use.
func RegisterBuiltins() {
	registryOnce.Do(func() {
		Register("openai", openai.NewFromConfig)
		Register("cohere", cohere.NewFromConfig)
		Register("voyage", voyage.NewFromConfig)
		Register("gemini", gemini.NewFromConfig)
		Register("ollama", ollama.NewFromConfig)
	})
}

func init() {
	RegisterBuiltins()
}
