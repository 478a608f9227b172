// Package errors defines unified error types for embedding provider
// operations. All provider-specific failures are mapped to these
// standard types so the runner can decide retry and skip behavior
// without inspecting provider SDK errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError represents a standardized error from an embedding
// provider. It carries enough information for retry decisions, result
// tables, and logging.
type ProviderError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Provider, e.Model, e.StatusCode)
}

// Common error types as constants for consistency.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

// NewAuthenticationError creates an authentication error (401).
// Authentication failures are never retried and mark the whole
// provider/model pass as failed.
func NewAuthenticationError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Type:       TypeAuthentication,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		Type:       TypeRateLimit,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusNotFound,
		Message:    message,
		Type:       TypeNotFound,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    message,
		Type:       TypeServiceUnavailable,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewInternalError creates an internal server error (500).
func NewInternalError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Type:       TypeInternalError,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// IsRetryable reports whether err may succeed on a retry. Unknown
// error values (plain network errors, context deadline) are treated as
// retryable; only errors explicitly classified as permanent are not.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}

// IsAuthentication reports whether err is a credential failure, which
// disqualifies the provider/model combination for the rest of the run.
func IsAuthentication(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type == TypeAuthentication
	}
	return false
}

// IsPermanent reports whether err should fail the provider/model
// combination without attempting remaining chunks or batch sizes.
func IsPermanent(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type == TypeAuthentication || pe.Type == TypeInvalidRequest
	}
	return false
}
