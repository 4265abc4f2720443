package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tempshare/pkg/binder"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/validator"
)

// ErrorInfo is the client-facing description of an error.
type ErrorInfo struct {
	StatusCode int
	Key        string
	Message    string
	Details    map[string][]string
	// Extra fields are merged into the JSON error body.
	Extra map[string]any
}

// LogLevel is warn for client errors and error otherwise.
func (i ErrorInfo) LogLevel() slog.Level {
	if isClientError(i.StatusCode) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// Classifier maps application errors to ErrorInfo. It reports false for
// errors it does not recognize.
type Classifier func(err error) (ErrorInfo, bool)

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

// Classify maps the errors this package and its binders know about.
// Anything else is a 500 whose message does not leak the cause.
func Classify(err error) ErrorInfo {
	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
		return ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Key:        "validation_error",
			Message:    verrs.Error(),
			Details:    verrs.Map(),
		}
	}

	switch {
	case errors.Is(err, binder.ErrRequestTooLarge):
		return ErrorInfo{StatusCode: http.StatusRequestEntityTooLarge, Key: ErrRequestEntityTooLarge.Key, Message: err.Error()}
	case binder.IsBindingError(err):
		return ErrorInfo{StatusCode: http.StatusBadRequest, Key: ErrBadRequest.Key, Message: err.Error()}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{StatusCode: httpErr.Code, Key: httpErr.Key, Message: http.StatusText(httpErr.Code)}
	}

	return ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Key:        ErrInternalServerError.Key,
		Message:    "internal server error",
	}
}

func writeError(w http.ResponseWriter, info ErrorInfo, requestID string) error {
	body := make(map[string]any, len(info.Extra)+5)
	for k, v := range info.Extra {
		body[k] = v
	}
	body["success"] = false
	body["error"] = info.Message
	if info.Key != "" {
		body["code"] = info.Key
	}
	if len(info.Details) > 0 {
		body["details"] = info.Details
	}
	if requestID != "" {
		body["request_id"] = requestID
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(info.StatusCode)
	return json.NewEncoder(w).Encode(body)
}

// NewErrorHandler returns an ErrorHandler that renders JSON error bodies of
// the form {"success": false, "error": "..."}. Classifiers are tried in order
// before Classify. Client errors are logged at warn, the rest at error.
func NewErrorHandler(log *slog.Logger, classifiers ...Classifier) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		reqID := ctx.RequestID()

		if errors.Is(err, ErrResponseStarted) {
			log.WarnContext(r.Context(), "response aborted",
				logger.Error(err),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			return
		}

		info, ok := ErrorInfo{}, false
		for _, classify := range classifiers {
			if info, ok = classify(err); ok {
				break
			}
		}
		if !ok {
			info = Classify(err)
		}

		log.LogAttrs(r.Context(), info.LogLevel(), "request error",
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if werr := writeError(ctx.ResponseWriter(), info, reqID); werr != nil {
			log.ErrorContext(r.Context(), "failed to write error response", logger.Error(werr))
		}
	}
}
