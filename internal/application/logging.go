package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/fieldservice-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// serviceLogger tags the request logger, or base outside a request, with
// the service and operation names.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.FromContextOr(ctx, base).
		With(append([]any{"service", serviceName, "operation", operation}, attrs...)...)
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		compErr     *CompensationFailure
		conflictErr *ConflictError
		storeErr    *StoreError
		vErr        *ValidationError
	)
	switch {
	case errors.As(err, &compErr):
		return "compensation_failure"
	case errors.As(err, &conflictErr):
		return "conflict"
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrTechnicianNotSynchronized):
		return "technician_not_synchronized"
	case errors.Is(err, ErrNoProviders):
		return "no_providers"
	case errors.Is(err, ErrNoOccurrences):
		return "no_occurrences"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &storeErr):
		return "store"
	}
	return "unexpected"
}
