// Package gemini provides the Google Gemini embedding adapter, built
// on the batchEmbedContents endpoint.
package gemini

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
	ProviderName = "gemini"

	// DefaultBaseURL is the default Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Provider implements the Gemini embedding API adapter.
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
	return strings.Contains(model, "embedding")
}

type embedContent struct {
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

type embedEntry struct {
	Model   string       `json:"model"`
	Content embedContent `json:"content"`
}

// BuildEmbedRequest creates an HTTP request for batchEmbedContents.
// Gemini scopes the key to a query parameter rather than a header.
func (p *Provider) BuildEmbedRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(ProviderName, req.Model, err.Error())
	}

	model := req.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	payload := struct {
		Requests []embedEntry `json:"requests"`
	}{}
	for _, text := range req.Input {
		entry := embedEntry{Model: model}
		entry.Content.Parts = append(entry.Content.Parts, struct {
			Text string `json:"text"`
		}{Text: text})
		payload.Requests = append(payload.Requests, entry)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s",
		strings.TrimSuffix(p.baseURL, "/"), model, p.apiKey)
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

// ParseEmbedResponse transforms a Gemini response into the unified
// format. Embeddings come back positionally.
func (p *Provider) ParseEmbedResponse(resp *http.Response) (*types.EmbeddingResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var raw struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &types.EmbeddingResponse{}
	for i, e := range raw.Embeddings {
		out.Data = append(out.Data, types.EmbeddingObject{Index: i, Embedding: e.Values})
	}
	return out, nil
}

// MapError converts a Gemini error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(ProviderName, "", message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, "", message)
	case http.StatusBadRequest:
		return errors.NewInvalidRequestError(ProviderName, "", message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, "", message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, "", message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusInternalServerError:
		return errors.NewServiceUnavailableError(ProviderName, "", message)
	default:
		return errors.NewInternalError(ProviderName, "", message)
	}
}
