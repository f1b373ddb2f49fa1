package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrDisabled is returned by a client that has no API key configured
	ErrDisabled = errors.New("text generation is not configured")

	// ErrEmptyCompletion indicates the endpoint answered without any choice
	ErrEmptyCompletion = errors.New("completion returned no content")

	// ErrRetryExceeded indicates every attempt failed
	ErrRetryExceeded = errors.New("text generation failed after retries")
)

// APIError is a non-2xx answer from the completion endpoint
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm api error: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm api error: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request is worth repeating
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// isRetryable decides whether an attempt error should be retried.
// Transport failures are retried, as are rate limits and server errors.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDisabled) || errors.Is(err, ErrEmptyCompletion) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
