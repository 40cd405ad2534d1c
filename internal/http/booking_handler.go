package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/persistence"
)

type bookingService interface {
	Book(ctx context.Context, req application.BookingRequest) (application.BookingResult, error)
	BookPublic(ctx context.Context, req application.PublicBookingRequest) (application.BookingResult, error)
	DeleteAppointment(ctx context.Context, id int64) (application.DeleteResult, error)
	EnrichAppointment(ctx context.Context, id int64, req application.AppointmentEnrichment) (persistence.Appointment, error)
}

// BookingHandler serves staff and public bookings and the hard delete.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler wires the booking service.
func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Create answers POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "failed to decode booking request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	result, err := h.service.Book(ctx, req.toRequest())
	if err != nil {
		h.fail(ctx, w, "Create", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toBookingResponse(result))
}

// CreatePublic answers POST /public/services/{serviceID}/bookings.
func (h *BookingHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID := chi.URLParam(r, "serviceID")

	var req publicBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "CreatePublic", "service_id", serviceID, "error_kind", "bad_request").WarnContext(ctx, "failed to decode booking request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	result, err := h.service.BookPublic(ctx, application.PublicBookingRequest{
		ServiceID:  serviceID,
		Start:      parseTime(req.Start),
		End:        parseTime(req.End),
		CustomerID: strings.TrimSpace(req.CustomerID),
		Customer:   req.Customer.toIdentity(),
		CaseType:   strings.TrimSpace(req.CaseType),
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(ctx, w, "CreatePublic", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toBookingResponse(result))
}

// DeleteAppointment answers DELETE /appointments/{id}.
func (h *BookingHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgInvalidID)
		return
	}

	result, err := h.service.DeleteAppointment(ctx, id)
	if err != nil {
		h.fail(ctx, w, "DeleteAppointment", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, deleteResponse{
		AppointmentID:   result.AppointmentID,
		CaseID:          result.CaseID,
		CaseDeleted:     result.CaseDeleted,
		CaseAlreadyGone: result.CaseAlreadyGone,
	})
}

// EnrichAppointment answers PATCH /appointments/{id}.
func (h *BookingHandler) EnrichAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgInvalidID)
		return
	}

	var req enrichmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "EnrichAppointment").WarnContext(ctx, "failed to decode enrichment", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgBadRequestBody)
		return
	}

	updated, err := h.service.EnrichAppointment(ctx, id, application.AppointmentEnrichment{Location: req.Location, Note: req.Note})
	if err != nil {
		h.fail(ctx, w, "EnrichAppointment", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toAppointmentDTO(updated))
}

func (h *BookingHandler) fail(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	kind := application.ErrorKind(err)
	logger := h.log(ctx, operation, "error_kind", kind)
	switch kind {
	case "store", "compensation_failure", "unexpected":
		logger.ErrorContext(ctx, "booking operation failed", "error", err)
	default:
		logger.InfoContext(ctx, "booking operation rejected", "error", err)
	}
	h.responder.handleServiceError(ctx, w, err)
}

type customerDTO struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (c customerDTO) toIdentity() persistence.CustomerIdentity {
	return persistence.CustomerIdentity{
		Name:    strings.TrimSpace(c.Name),
		Address: strings.TrimSpace(c.Address),
		Phone:   strings.TrimSpace(c.Phone),
	}
}

type bookingRequest struct {
	TechnicianID         int64       `json:"technician_id"`
	TechnicianIdentityID string      `json:"technician_identity_id"`
	Start                string      `json:"start"`
	End                  string      `json:"end"`
	CustomerID           string      `json:"customer_id"`
	Customer             customerDTO `json:"customer"`
	CaseType             string      `json:"case_type"`
	Notes                string      `json:"notes"`
	Location             string      `json:"location"`
}

func (r bookingRequest) toRequest() application.BookingRequest {
	return application.BookingRequest{
		TechnicianIdentityID: strings.TrimSpace(r.TechnicianIdentityID),
		TechnicianID:         r.TechnicianID,
		Start:                parseTime(r.Start),
		End:                  parseTime(r.End),
		CustomerID:           strings.TrimSpace(r.CustomerID),
		Customer:             r.Customer.toIdentity(),
		CaseType:             strings.TrimSpace(r.CaseType),
		Notes:                r.Notes,
		Location:             strings.TrimSpace(r.Location),
		Channel:              application.ChannelStaff,
	}
}

type publicBookingRequest struct {
	Start      string      `json:"start"`
	End        string      `json:"end"`
	CustomerID string      `json:"customer_id"`
	Customer   customerDTO `json:"customer"`
	CaseType   string      `json:"case_type"`
	Notes      string      `json:"notes"`
}

type appointmentDTO struct {
	ID            int64  `json:"id"`
	TechnicianID  int64  `json:"technician_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Blocking      bool   `json:"blocking"`
	Notes         string `json:"notes,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Location      string `json:"location,omitempty"`
	BookingToken  string `json:"booking_token"`
}

func toAppointmentDTO(a persistence.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:            a.ID,
		TechnicianID:  a.TechnicianID,
		Start:         formatTime(a.Start),
		End:           formatTime(a.End),
		Blocking:      a.Blocking,
		Notes:         a.Notes,
		CustomerPhone: a.CustomerPhone,
		Location:      a.Location,
		BookingToken:  a.BookingToken,
	}
}

type bookingResponse struct {
	Case        persistence.Case `json:"case"`
	Appointment appointmentDTO   `json:"appointment"`
}

func toBookingResponse(result application.BookingResult) bookingResponse {
	return bookingResponse{Case: result.Case, Appointment: toAppointmentDTO(result.Appointment)}
}

type enrichmentRequest struct {
	Location *string `json:"location"`
	Note     *string `json:"note"`
}

type deleteResponse struct {
	AppointmentID   int64  `json:"appointment_id"`
	CaseID          string `json:"case_id,omitempty"`
	CaseDeleted     bool   `json:"case_deleted"`
	CaseAlreadyGone bool   `json:"case_already_gone"`
}
