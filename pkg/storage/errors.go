package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every NotFoundError
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedDriver indicates a driver other than sqlite or mysql
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
)

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	Key    interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
