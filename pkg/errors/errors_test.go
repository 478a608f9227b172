package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryClassification(t *testing.T) {
	assert.False(t, IsRetryable(NewAuthenticationError("openai", "m", "bad key")))
	assert.False(t, IsRetryable(NewInvalidRequestError("openai", "m", "bad input")))
	assert.False(t, IsRetryable(NewNotFoundError("openai", "m", "no model")))
	assert.True(t, IsRetryable(NewRateLimitError("openai", "m", "slow down")))
	assert.True(t, IsRetryable(NewTimeoutError("openai", "m", "timeout")))
	assert.True(t, IsRetryable(NewServiceUnavailableError("openai", "m", "down")))
	assert.True(t, IsRetryable(NewInternalError("openai", "m", "oops")))

	// Unclassified errors (plain network failures) stay retryable.
	assert.True(t, IsRetryable(fmt.Errorf("connection reset")))
}

func TestPermanentClassification(t *testing.T) {
	assert.True(t, IsPermanent(NewAuthenticationError("openai", "m", "bad key")))
	assert.True(t, IsPermanent(NewInvalidRequestError("openai", "m", "bad input")))
	assert.False(t, IsPermanent(NewRateLimitError("openai", "m", "slow down")))
	assert.False(t, IsPermanent(fmt.Errorf("connection reset")))
}

func TestIsAuthenticationUnwraps(t *testing.T) {
	err := NewAuthenticationError("cohere", "embed-v3", "invalid token")
	wrapped := fmt.Errorf("chunk 3: %w", err)

	assert.True(t, IsAuthentication(wrapped))
	assert.False(t, IsAuthentication(fmt.Errorf("other")))
	assert.False(t, IsRetryable(wrapped))
}

func TestErrorString(t *testing.T) {
	err := NewRateLimitError("voyage", "voyage-3", "quota exceeded")
	s := err.Error()
	assert.Contains(t, s, "rate_limit_error")
	assert.Contains(t, s, "voyage")
	assert.Contains(t, s, "quota exceeded")
	assert.Contains(t, s, "429")
}
