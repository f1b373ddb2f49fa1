package service

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrDuplicateImport the file was already imported
	ErrDuplicateImport = errors.New("file already imported")

	// ErrNoImports nothing has been imported yet
	ErrNoImports = errors.New("no imports available")

	// ErrObjectStoreDisabled bucket import requested without a bucket
	ErrObjectStoreDisabled = errors.New("object store is not configured")
)

// DuplicateImportError names the import that already holds the content
type DuplicateImportError struct {
	Filename   string
	ExistingID uint
}

func (e *DuplicateImportError) Error() string {
	return fmt.Sprintf("%s: %s matches import %d", ErrDuplicateImport, e.Filename, e.ExistingID)
}

func (e *DuplicateImportError) Unwrap() error {
	return ErrDuplicateImport
}

// IsDuplicate reports whether err is a duplicate import
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateImport)
}
