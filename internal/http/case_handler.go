package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/persistence"
)

type caseService interface {
	GetCase(ctx context.Context, id string) (persistence.Case, error)
	UpdateCase(ctx context.Context, id string, req application.CaseUpdateRequest) (persistence.Case, error)
	AdvanceStatus(ctx context.Context, id string, next persistence.CaseStatus) (persistence.Case, error)
}

// CaseHandler serves case administration.
type CaseHandler struct {
	service   caseService
	responder responder
	logger    *slog.Logger
}

// NewCaseHandler wires the case service.
func NewCaseHandler(service caseService, logger *slog.Logger) *CaseHandler {
	base := defaultLogger(logger)
	return &CaseHandler{service: service, responder: newResponder(base), logger: base}
}

// Get answers GET /cases/{id}.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.service.GetCase(ctx, id)
	if err != nil {
		handlerLogger(ctx, h.logger, "CaseHandler", "Get", "case_id", id).
			InfoContext(ctx, "case lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, c)
}

// Update answers PATCH /cases/{id}.
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	logger := handlerLogger(ctx, h.logger, "CaseHandler", "Update", "case_id", id)

	var req caseUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode case update", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	update := application.CaseUpdateRequest{Type: req.Type, TechnicianID: req.TechnicianID}
	if req.Customer != nil {
		identity := req.Customer.toIdentity()
		update.Customer = &identity
	}
	if req.Status != nil {
		status := persistence.CaseStatus(*req.Status)
		update.Status = &status
	}

	updated, err := h.service.UpdateCase(ctx, id, update)
	if err != nil {
		logger.InfoContext(ctx, "case update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, updated)
}

// Advance answers POST /cases/{id}/advance.
func (h *CaseHandler) Advance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	logger := handlerLogger(ctx, h.logger, "CaseHandler", "Advance", "case_id", id)

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode status change", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	updated, err := h.service.AdvanceStatus(ctx, id, persistence.CaseStatus(req.Status))
	if err != nil {
		logger.InfoContext(ctx, "status change rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, updated)
}

type caseUpdateRequest struct {
	Customer     *customerDTO `json:"customer"`
	Type         *string      `json:"type"`
	Status       *string      `json:"status"`
	TechnicianID *string      `json:"technician_id"`
}

type advanceRequest struct {
	Status string `json:"status"`
}
