package types

import "fmt"

// EmbeddingRequest represents a batch embedding request sent to a provider.
// Input order is significant: providers must return one vector per input
// text, in the same order.
type EmbeddingRequest struct {
	// Model is the provider-specific model identifier.
	Model string `json:"model"`

	// Input is the batch of texts to embed.
	Input []string `json:"input"`
}

// Validate checks that the request can be sent without a round trip.
func (r *EmbeddingRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Input) == 0 {
		return fmt.Errorf("input cannot be empty")
	}
	for i, s := range r.Input {
		if s == "" {
			return fmt.Errorf("input contains empty string at index %d", i)
		}
	}
	return nil
}

// EmbeddingResponse is the unified embedding result across providers.
type EmbeddingResponse struct {
	Model string            `json:"model"`
	Data  []EmbeddingObject `json:"data"`
	Usage *EmbeddingUsage   `json:"usage,omitempty"`
}

// EmbeddingObject is a single embedding vector with its input position.
type EmbeddingObject struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingUsage contains token accounting for an embedding call.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Vectors returns the embedding vectors in input order.
func (r *EmbeddingResponse) Vectors() [][]float64 {
	out := make([][]float64, len(r.Data))
	for _, d := range r.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out
}
