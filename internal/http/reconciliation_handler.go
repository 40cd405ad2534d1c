package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/reconcile"
)

type reconciliationService interface {
	Run(ctx context.Context) (reconcile.Report, error)
}

// ReconciliationHandler runs a read-only reconciliation pass on demand.
type ReconciliationHandler struct {
	service   reconciliationService
	responder responder
	logger    *slog.Logger
}

// NewReconciliationHandler wires the reconciliation service.
func NewReconciliationHandler(service reconciliationService, logger *slog.Logger) *ReconciliationHandler {
	base := defaultLogger(logger)
	return &ReconciliationHandler{service: service, responder: newResponder(base), logger: base}
}

// Report answers GET /reconciliation.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.Run(ctx)
	if err != nil {
		handlerLogger(ctx, h.logger, "ReconciliationHandler", "Report").
			ErrorContext(ctx, "reconciliation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, report)
}
