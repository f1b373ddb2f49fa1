package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"costlens/pkg/analysis"
	"costlens/pkg/clickhouse"
	"costlens/pkg/frame"
	"costlens/pkg/response"
	"costlens/pkg/scheduler"
	"costlens/pkg/service"
	"costlens/pkg/storage"
)

// Common error type definitions
var (
	// ErrInvalidParam indicates invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrServiceUnavailable indicates service unavailable error
	ErrServiceUnavailable = errors.New("service unavailable")
)

// APIError carries an explicit status code
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API Error (Code: %d, Message: %s): %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("API Error (Code: %d, Message: %s)", e.Code, e.Message)
}

// Unwrap supports error wrapping
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new API error
func NewAPIError(code int, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, err error) *APIError {
	return NewAPIError(http.StatusBadRequest, message, err)
}

// classify maps domain errors to a status code and a public message
func classify(err error) (int, string) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case storage.IsNotFound(err):
		return http.StatusNotFound, "Import not found"
	case errors.Is(err, service.ErrNoImports):
		return http.StatusNotFound, "No imports available"
	case errors.Is(err, scheduler.ErrJobNotFound):
		return http.StatusNotFound, "Scheduled job not found"
	case service.IsDuplicate(err):
		return http.StatusConflict, "File already imported"
	case frame.IsLoadError(err):
		return http.StatusUnprocessableEntity, "Could not read the file"
	case errors.Is(err, ErrInvalidParam),
		errors.Is(err, analysis.ErrInvalidPeriod),
		errors.Is(err, analysis.ErrInvalidDateRange):
		return http.StatusBadRequest, "Invalid parameter"
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, service.ErrObjectStoreDisabled),
		errors.Is(err, clickhouse.ErrDisabled):
		return http.StatusServiceUnavailable, "Service unavailable"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// HandleError writes err with the status its kind maps to
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := classify(err)
	response.Error(c, code, message, err)
}
