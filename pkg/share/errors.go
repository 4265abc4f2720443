package share

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("file not found")
	ErrExpired        = errors.New("file has expired")
	ErrQuotaExceeded  = errors.New("file access limit reached")
	ErrUnsupported    = errors.New("operation not supported by provider")
	ErrBackend        = errors.New("storage backend failure")
	ErrOrphanedObject = errors.New("file stored but could not be registered")
	ErrInternal       = errors.New("internal error")
	ErrNilDependency  = errors.New("share service dependency is nil")
)

// BackendError reports a provider failure with the operation that hit it.
// It matches ErrBackend and the underlying cause via errors.Is.
type BackendError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *BackendError) Unwrap() []error {
	return []error{ErrBackend, e.Err}
}

// OrphanedObjectError is returned by Upload when the content reached the
// backend but the registry refused or failed to record it. Removed reports
// whether the stray object was deleted afterwards; CleanupErr holds the
// reason when it was not.
type OrphanedObjectError struct {
	Provider   string
	Location   string
	Err        error
	Removed    bool
	CleanupErr error
}

func (e *OrphanedObjectError) Error() string {
	state := "left in place"
	if e.Removed {
		state = "removed"
	}
	return fmt.Sprintf("file stored at %s:%s but not registered (object %s): %v", e.Provider, e.Location, state, e.Err)
}

func (e *OrphanedObjectError) Unwrap() []error {
	return []error{ErrOrphanedObject, e.Err}
}
