package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/logging"
)

// Error codes of the response body.
const (
	codeBadRequest         = "BAD_REQUEST"
	codeValidation         = "VALIDATION_FAILED"
	codeSlotTaken          = "SLOT_TAKEN"
	codeBookingFailed      = "BOOKING_FAILED"
	codeIntegrityIncident  = "BOOKING_INTEGRITY_INCIDENT"
	codeNotSynchronized    = "TECHNICIAN_NOT_SYNCHRONIZED"
	codeNoProviders        = "NO_PROVIDERS"
	codeNoOccurrences      = "NO_OCCURRENCES"
	codeInvalidTransition  = "INVALID_TRANSITION"
	codeNotFound           = "NOT_FOUND"
	codeInternal           = "INTERNAL"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

const (
	msgBadRequestBody = "request body is not valid JSON"
	msgInvalidID      = "id must be a positive integer"
)

type errorResponse struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Step      string         `json:"step,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// handleServiceError maps the application error taxonomy onto status codes.
// A taken slot and a failed write never share a code.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		incident *application.CompensationFailure
		conflict *application.ConflictError
		vErr     *application.ValidationError
		storeErr *application.StoreError
	)

	switch {
	case err == nil:
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, "unknown error")
	case errors.As(err, &incident):
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: codeIntegrityIncident,
			Message:   "booking failed and could not be rolled back; the case needs manual reconciliation",
			Step:      incident.Step,
			Details:   map[string]any{"case_id": incident.CaseID},
		})
	case errors.As(err, &conflict):
		details := map[string]any{"policy": string(conflict.Policy)}
		if conflict.TechnicianID > 0 {
			details["technician_id"] = conflict.TechnicianID
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeSlotTaken,
			Message:   "the requested time is no longer available",
			Details:   details,
		})
	case errors.As(err, &vErr):
		details := make(map[string]any, len(vErr.FieldErrors))
		for field, message := range vErr.FieldErrors {
			details[field] = message
		}
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeValidation,
			Message:   "request validation failed",
			Details:   details,
		})
	case errors.Is(err, application.ErrTechnicianNotSynchronized):
		r.writeError(ctx, w, http.StatusUnprocessableEntity, codeNotSynchronized,
			"technician has no scheduling record; ask an administrator to synchronize it")
	case errors.Is(err, application.ErrNoProviders):
		r.writeError(ctx, w, http.StatusUnprocessableEntity, codeNoProviders, "no technician offers this service")
	case errors.Is(err, application.ErrNoOccurrences):
		r.writeError(ctx, w, http.StatusUnprocessableEntity, codeNoOccurrences, "the rule matches no day in its date range")
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeError(ctx, w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.As(err, &storeErr):
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: codeBookingFailed,
			Message:   "a store rejected the operation",
			Step:      storeErr.Step,
		})
	default:
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}
