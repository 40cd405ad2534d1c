package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/persistence"
)

type blockService interface {
	BlockTime(ctx context.Context, technicianID int64, start, end time.Time, reason string) (persistence.Appointment, error)
	CreateRecurringBlocks(ctx context.Context, req application.RecurrenceRequest) (application.RecurrenceResult, error)
}

// BlockHandler serves single and recurring blocks of unavailability.
type BlockHandler struct {
	service   blockService
	responder responder
	logger    *slog.Logger
}

// NewBlockHandler wires the block service.
func NewBlockHandler(service blockService, logger *slog.Logger) *BlockHandler {
	base := defaultLogger(logger)
	return &BlockHandler{service: service, responder: newResponder(base), logger: base}
}

// Create answers POST /technicians/{id}/blocks.
func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	technicianID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgInvalidID)
		return
	}
	logger := handlerLogger(ctx, h.logger, "BlockHandler", "Create", "technician_id", technicianID)

	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode block request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	block, err := h.service.BlockTime(ctx, technicianID, parseTime(req.Start), parseTime(req.End), req.Reason)
	if err != nil {
		logger.InfoContext(ctx, "block rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toAppointmentDTO(block))
}

// CreateRecurring answers POST /technicians/{id}/recurring-blocks.
func (h *BlockHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	technicianID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgInvalidID)
		return
	}
	logger := handlerLogger(ctx, h.logger, "BlockHandler", "CreateRecurring", "technician_id", technicianID)

	var req recurringBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode recurrence request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	result, err := h.service.CreateRecurringBlocks(ctx, application.RecurrenceRequest{
		TechnicianID: technicianID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Weekdays:     req.Weekdays,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Reason:       req.Reason,
	})
	if err != nil {
		logger.InfoContext(ctx, "recurring blocks rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, recurringBlockResponse{
		Created:             result.Created,
		OverlappingBookings: result.OverlappingBookings,
	})
}

type blockRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type recurringBlockRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Weekdays  []int  `json:"weekdays"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type recurringBlockResponse struct {
	Created             int `json:"created"`
	OverlappingBookings int `json:"overlapping_bookings"`
}
