package notifier

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured a channel is missing its endpoint or credentials
	ErrNotConfigured = errors.New("notification channel not configured")

	// ErrRetryExceeded every delivery attempt failed
	ErrRetryExceeded = errors.New("alert delivery failed after retries")
)

// APIError is a business error reported in a 200 response body
type APIError struct {
	Channel string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Channel, e.Code, e.Message)
}

// HTTPError is a non-2xx response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request failed: %d, response: %s", e.StatusCode, e.Body)
}
