// Package provider defines the public interface for embedding provider
// adapters. Each provider (OpenAI, Cohere, Voyage, Gemini, Ollama)
// implements this interface to handle request/response transformation;
// the benchmark runner owns transport, concurrency, and retries.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/raglens/raglens/pkg/types"
)

// EmbeddingProvider defines the interface that all embedding adapters
// must implement. Adapters are stateless beyond their configuration and
// never touch the cache; that is the caller's responsibility.
type EmbeddingProvider interface {
	// Name returns the provider identifier (e.g., "openai", "cohere").
	Name() string

	// SupportedModels returns the embedding models this provider can handle.
	SupportedModels() []string

	// SupportsModel checks if the provider supports the given model.
	SupportsModel(model string) bool

	// BuildEmbedRequest transforms a unified EmbeddingRequest into a
	// provider-specific HTTP request. The request must be validated
	// before any network activity.
	BuildEmbedRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error)

	// ParseEmbedResponse transforms a provider-specific response body
	// into the unified format. Vector order must match input order.
	ParseEmbedResponse(resp *http.Response) (*types.EmbeddingResponse, error)

	// MapError converts a provider-specific error response into a
	// standardized ProviderError.
	MapError(statusCode int, body []byte) error
}

// Config contains provider-specific configuration.
type Config struct {
	Name    string
	Type    string
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration
	Headers map[string]string
}

// Factory creates provider instances from configuration.
type Factory func(cfg Config) (EmbeddingProvider, error)

// RequiresCredentials reports whether a provider type needs an API key.
// Local providers (Ollama) are keyless and never skipped for missing
// credentials.
func RequiresCredentials(providerType string) bool {
	return providerType != "ollama"
}
