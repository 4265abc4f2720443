package storage

import "errors"

// Input errors.
var (
	ErrInvalidPath = errors.New("storage: invalid path")
	ErrNilReader   = errors.New("storage: nil content reader")
)

// Object errors. Every adapter maps its native "not found" to ErrFileNotFound.
var (
	ErrFileNotFound      = errors.New("storage: file not found")
	ErrDirectoryNotFound = errors.New("storage: directory not found")
	ErrIsDirectory       = errors.New("storage: path is a directory")
	ErrUnsupported       = errors.New("storage: operation not supported by provider")
)

// ErrLocalIO wraps filesystem failures of LocalStorage; the message names the operation.
var ErrLocalIO = errors.New("storage: local filesystem error")

// Remote provider errors.
var (
	ErrBucketNotFound     = errors.New("storage: bucket not found")
	ErrAccessDenied       = errors.New("storage: access denied")
	ErrRequestTimeout     = errors.New("storage: provider request timed out")
	ErrServiceUnavailable = errors.New("storage: provider temporarily unavailable")
	ErrSignFailed         = errors.New("storage: signing link failed")
	ErrOperationTimeout   = errors.New("storage: operation timed out")
	ErrOperationCanceled  = errors.New("storage: operation canceled")
)

// Setup errors.
var (
	ErrInvalidConfig      = errors.New("storage: invalid configuration")
	ErrFailedToLoadConfig = errors.New("storage: loading provider config failed")
	ErrUnknownProvider    = errors.New("storage: unknown provider")
	ErrDuplicateProvider  = errors.New("storage: provider registered twice")
)
