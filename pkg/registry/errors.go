package registry

import "errors"

var (
	ErrNotFound          = errors.New("file record not found")
	ErrDuplicateID       = errors.New("file record id already used")
	ErrInvalidRecord     = errors.New("invalid file record")
	ErrNilDocumentStore  = errors.New("registry document store is nil")
	ErrReservationClosed = errors.New("access reservation already committed or released")

	// Persistence errors. A failed save leaves the committed state untouched.
	ErrPersist          = errors.New("failed to persist registry document")
	ErrLoad             = errors.New("failed to load registry document")
	ErrCorruptDocument  = errors.New("registry document is corrupted")
	ErrDocumentNotFound = errors.New("registry document not found")
)
