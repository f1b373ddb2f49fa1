package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConnectionFailed indicates a connection failure
	ErrConnectionFailed = errors.New("clickhouse connection failed")

	// ErrInvalidTableName indicates a table name that is not a plain identifier
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrEmptyData indicates that no rows were provided for insertion
	ErrEmptyData = errors.New("no data provided for insertion")

	// ErrDisabled is returned by a nil or disabled mirror
	ErrDisabled = errors.New("clickhouse mirror is disabled")
)

// ErrorWrapper wraps errors with the failed operation and table
type ErrorWrapper struct {
	Operation string
	Table     string
	Err       error
}

// Error implements the error interface
func (e *ErrorWrapper) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s failed for table '%s': %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error
func (e *ErrorWrapper) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation and table context
func WrapError(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrorWrapper{Operation: operation, Table: table, Err: err}
}

// WrapConnectionError wraps a connection-related error
func WrapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}

// IsConnectionError checks if the error is a connection-related error
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// isRetryable reports whether a batch failure is worth another attempt.
// Network errors and dropped connections are; anything else, such as a
// schema mismatch, is not.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
