package requestid

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tempshare/pkg/logger"
)

// LogExtractor adds the request id to every log record written with the request context.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
