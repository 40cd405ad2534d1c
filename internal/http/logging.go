package http

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/fieldservice-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request logger installed by RequestLogger.
// Without one it falls back to the handler's logger tagged with the chi
// request id.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id := middleware.GetReqID(ctx); id != "" {
			logger = logger.With("request_id", id)
		}
	}
	return logger.With(append([]any{"handler", handlerName, "operation", operation}, attrs...)...)
}
