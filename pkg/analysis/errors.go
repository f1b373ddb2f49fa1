package analysis

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNoDataFound no rows left after filtering
	ErrNoDataFound = errors.New("no data found")

	// ErrInvalidPeriod unknown period key
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidDateRange custom window without both ends
	ErrInvalidDateRange = errors.New("invalid date range")
)

// wrapError adds context to err
func wrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	return fmt.Errorf("%s: %w", message, err)
}
