// Package ollama provides the Ollama embedding adapter for local
// models. Ollama is keyless, so the provider is never skipped for
// missing credentials.
package ollama

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
	ProviderName = "ollama"

	// DefaultBaseURL is the default local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
)

// Provider implements the Ollama embedding API adapter.
type Provider struct {
	baseURL string
	models  []string
	headers map[string]string
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.EmbeddingProvider, error) {
	p := &Provider{
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
// Ollama serves whatever is pulled locally, so any name is accepted.
func (p *Provider) SupportsModel(model string) bool {
	return model != ""
}

// embedRequest is the Ollama /api/embed wire format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// BuildEmbedRequest creates an HTTP request for the Ollama embed API.
func (p *Provider) BuildEmbedRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(ProviderName, req.Model, err.Error())
	}

	body, err := json.Marshal(embedRequest{Model: req.Model, Input: req.Input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/api/embed"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// ParseEmbedResponse transforms an Ollama response into the unified format.
func (p *Provider) ParseEmbedResponse(resp *http.Response) (*types.EmbeddingResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var raw struct {
		Model      string      `json:"model"`
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &types.EmbeddingResponse{Model: raw.Model}
	for i, v := range raw.Embeddings {
		out.Data = append(out.Data, types.EmbeddingObject{Index: i, Embedding: v})
	}
	return out, nil
}

// MapError converts an Ollama error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch statusCode {
	case http.StatusBadRequest:
		return errors.NewInvalidRequestError(ProviderName, "", message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, "", message)
	case http.StatusServiceUnavailable:
		return errors.NewServiceUnavailableError(ProviderName, "", message)
	default:
		return errors.NewInternalError(ProviderName, "", message)
	}
}
