package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/tempshare/handler"
	"github.com/dmitrymomot/tempshare/pkg/share"
)

// Client-facing messages. Causes are logged, not returned.
const (
	msgNotFound    = "File not found"
	msgExpired     = "File has expired"
	msgQuota       = "Access limit exceeded"
	msgOrphaned    = "File was stored but could not be registered"
	msgBackend     = "Storage backend error"
	msgInternal    = "Internal server error"
	msgUnsupported = "Operation not supported by provider"
)

// internalError marks a failure on a route whose contract reports any
// server-side fault, backend ones included, as 500.
type internalError struct{ err error }

func (e internalError) Error() string { return e.err.Error() }
func (e internalError) Unwrap() error { return e.err }

// asInternal wraps backend failures for routes without a gateway status.
func asInternal(err error) error {
	if errors.Is(err, share.ErrBackend) {
		return internalError{err: err}
	}
	return err
}

// classify maps the share error taxonomy to HTTP responses.
// Validation and binding errors fall through to handler.Classify.
func classify(err error) (handler.ErrorInfo, bool) {
	var backendErr *share.BackendError

	var internal internalError
	if errors.As(err, &internal) {
		info := handler.ErrorInfo{
			StatusCode: http.StatusInternalServerError,
			Key:        "backend_error",
			Message:    msgBackend,
		}
		if errors.As(err, &backendErr) {
			info.Extra = map[string]any{
				"provider":  backendErr.Provider,
				"operation": backendErr.Operation,
			}
		}
		return info, true
	}

	var orphan *share.OrphanedObjectError
	if errors.As(err, &orphan) {
		return handler.ErrorInfo{
			StatusCode: http.StatusInternalServerError,
			Key:        "orphaned_object",
			Message:    msgOrphaned,
			Extra: map[string]any{
				"orphaned":       true,
				"object_removed": orphan.Removed,
			},
		}, true
	}

	if errors.As(err, &backendErr) {
		return handler.ErrorInfo{
			StatusCode: http.StatusBadGateway,
			Key:        "backend_error",
			Message:    msgBackend,
			Extra: map[string]any{
				"provider":  backendErr.Provider,
				"operation": backendErr.Operation,
			},
		}, true
	}

	switch {
	case errors.Is(err, share.ErrNotFound):
		return handler.ErrorInfo{StatusCode: http.StatusNotFound, Key: "not_found", Message: msgNotFound}, true
	case errors.Is(err, share.ErrExpired):
		return handler.ErrorInfo{StatusCode: http.StatusGone, Key: "expired", Message: msgExpired}, true
	case errors.Is(err, share.ErrQuotaExceeded):
		return handler.ErrorInfo{StatusCode: http.StatusForbidden, Key: "quota_exceeded", Message: msgQuota}, true
	case errors.Is(err, share.ErrUnsupported):
		return handler.ErrorInfo{StatusCode: http.StatusNotImplemented, Key: "unsupported", Message: msgUnsupported}, true
	case errors.Is(err, share.ErrOrphanedObject):
		return handler.ErrorInfo{
			StatusCode: http.StatusInternalServerError,
			Key:        "orphaned_object",
			Message:    msgOrphaned,
			Extra:      map[string]any{"orphaned": true},
		}, true
	case errors.Is(err, share.ErrBackend):
		return handler.ErrorInfo{StatusCode: http.StatusBadGateway, Key: "backend_error", Message: msgBackend}, true
	case errors.Is(err, share.ErrInternal):
		return handler.ErrorInfo{StatusCode: http.StatusInternalServerError, Key: "internal_error", Message: msgInternal}, true
	}
	return handler.ErrorInfo{}, false
}
