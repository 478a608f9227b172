// Package voyage provides the Voyage AI embedding adapter. The Voyage
// API is OpenAI-shaped, so the adapter differs only in endpoint and
// model naming.
package voyage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/raglens/raglens/pkg/errors"
	"github.com/raglens/raglens/pkg/provider"
	"github.com/raglens/raglens/pkg/types"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "voyage"

	// DefaultBaseURL is the default Voyage AI API endpoint.
	DefaultBaseURL = "https://api.voyageai.com/v1"
)

// Provider implements the Voyage AI embedding API adapter.
type Provider struct {
	apiKey  string
	baseURL string
	models  []string
	headers map[string]string
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.EmbeddingProvider, error) {
	p := &Provider{
		apiKey:  cfg.APIKey,
		baseURL: DefaultBaseURL,
		models:  cfg.Models,
		headers: make(map[string]string),
	}
	if cfg.BaseURL != "" {
		p.baseURL = cfg.BaseURL
	}
	for k, v := range cfg.Headers {
		p.headers[k] = v
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// SupportedModels returns the list of supported models.
func (p *Provider) SupportedModels() []string {
	return p.models
}

// SupportsModel checks if the provider supports the given model.
func (p *Provider) SupportsModel(model string) bool {
	for _, m := range p.models {
		if m == model {
			return true
		}
	}
	return strings.HasPrefix(model, "voyage-")
}

// BuildEmbedRequest creates an HTTP request for the Voyage embedding API.
func (p *Provider) BuildEmbedRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(ProviderName, req.Model, err.Error())
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// ParseEmbedResponse transforms a Voyage response into the unified format.
func (p *Provider) ParseEmbedResponse(resp *http.Response) (*types.EmbeddingResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var raw struct {
		Model string `json:"model"`
		Data  []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		Usage *types.EmbeddingUsage `json:"usage"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &types.EmbeddingResponse{Model: raw.Model, Usage: raw.Usage}
	for _, d := range raw.Data {
		out.Data = append(out.Data, types.EmbeddingObject{Index: d.Index, Embedding: d.Embedding})
	}
	return out, nil
}

// MapError converts a Voyage error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Detail string `json:"detail"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		message = errResp.Detail
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(ProviderName, "", message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, "", message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.NewInvalidRequestError(ProviderName, "", message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, "", message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewServiceUnavailableError(ProviderName, "", message)
	default:
		return errors.NewInternalError(ProviderName, "", message)
	}
}
