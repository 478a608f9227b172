// Package cohere provides the Cohere v2 embedding adapter.
package cohere

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
	ProviderName = "cohere"

	// DefaultBaseURL is the default Cohere API endpoint.
	DefaultBaseURL = "https://api.cohere.com/v2"
)

// Provider implements the Cohere embedding API adapter.
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
	return strings.HasPrefix(model, "embed-")
}

// embedRequest is the Cohere v2 wire format.
type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// BuildEmbedRequest creates an HTTP request for the Cohere embed API.
func (p *Provider) BuildEmbedRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(ProviderName, req.Model, err.Error())
	}

	body, err := json.Marshal(embedRequest{
		Model:          req.Model,
		Texts:          req.Input,
		InputType:      "search_document",
		EmbeddingTypes: []string{"float"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/embed"
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

// ParseEmbedResponse transforms a Cohere response into the unified
// format. Cohere returns vectors positionally, so the index is implied
// by the slice order.
func (p *Provider) ParseEmbedResponse(resp *http.Response) (*types.EmbeddingResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var raw struct {
		Embeddings struct {
			Float [][]float64 `json:"float"`
		} `json:"embeddings"`
		Meta struct {
			BilledUnits struct {
				InputTokens int `json:"input_tokens"`
			} `json:"billed_units"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &types.EmbeddingResponse{}
	if raw.Meta.BilledUnits.InputTokens > 0 {
		out.Usage = &types.EmbeddingUsage{
			PromptTokens: raw.Meta.BilledUnits.InputTokens,
			TotalTokens:  raw.Meta.BilledUnits.InputTokens,
		}
	}
	for i, v := range raw.Embeddings.Float {
		out.Data = append(out.Data, types.EmbeddingObject{Index: i, Embedding: v})
	}
	return out, nil
}

// MapError converts a Cohere error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(ProviderName, "", message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, "", message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.NewInvalidRequestError(ProviderName, "", message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, "", message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, "", message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewServiceUnavailableError(ProviderName, "", message)
	default:
		return errors.NewInternalError(ProviderName, "", message)
	}
}
