package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

type availabilityService interface {
	IsFree(ctx context.Context, technicianID int64, start, end time.Time, policy scheduler.Policy) (bool, error)
	GenerateSlots(ctx context.Context, serviceID string, opts scheduler.SlotOptions) (scheduler.Slots, error)
}

// AvailabilityHandler serves free/busy checks and public slot listings.
type AvailabilityHandler struct {
	service   availabilityService
	slots     scheduler.SlotOptions
	responder responder
	logger    *slog.Logger
}

// NewAvailabilityHandler serves slots with defaults unless the query
// overrides days or duration.
func NewAvailabilityHandler(service availabilityService, defaults scheduler.SlotOptions, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, slots: defaults, responder: newResponder(base), logger: base}
}

// Availability answers GET /technicians/{id}/availability.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	technicianID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, msgInvalidID)
		return
	}

	query := r.URL.Query()
	start, end := parseTime(query.Get("start")), parseTime(query.Get("end"))
	policy := scheduler.PolicyStrict
	if value := strings.TrimSpace(query.Get("policy")); value != "" {
		policy = scheduler.Policy(value)
	}

	free, err := h.service.IsFree(ctx, technicianID, start, end, policy)
	if err != nil {
		handlerLogger(ctx, h.logger, "AvailabilityHandler", "Availability", "technician_id", technicianID).
			WarnContext(ctx, "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, availabilityResponse{
		TechnicianID: technicianID,
		Start:        formatTime(start),
		End:          formatTime(end),
		Policy:       string(policy),
		Free:         free,
	})
}

// Slots answers GET /public/services/{serviceID}/slots.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID := chi.URLParam(r, "serviceID")
	logger := handlerLogger(ctx, h.logger, "AvailabilityHandler", "Slots", "service_id", serviceID)

	opts, err := h.slotOptions(r)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	slots, err := h.service.GenerateSlots(ctx, serviceID, opts)
	if err != nil {
		logger.WarnContext(ctx, "slot generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	days := make(map[string][]string, len(slots))
	for day, starts := range slots {
		formatted := make([]string, len(starts))
		for i, start := range starts {
			formatted[i] = formatTime(start)
		}
		days[day] = formatted
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, slotsResponse{
		ServiceID:       serviceID,
		DurationMinutes: int(opts.SlotDuration / time.Minute),
		Slots:           days,
	})
}

func (h *AvailabilityHandler) slotOptions(r *http.Request) (scheduler.SlotOptions, error) {
	opts := h.slots
	query := r.URL.Query()
	fieldErrors := make(map[string]string)

	if value := query.Get("days"); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil {
			fieldErrors["days"] = "days must be an integer"
		} else {
			opts.HorizonDays = days
		}
	}
	if value := query.Get("duration"); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			minutes, convErr := strconv.Atoi(value)
			if convErr != nil {
				fieldErrors["duration"] = "duration must be minutes or a Go duration such as 90m"
			}
			duration = time.Duration(minutes) * time.Minute
		}
		opts.SlotDuration = duration
	}

	if len(fieldErrors) > 0 {
		return opts, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return opts, nil
}

type availabilityResponse struct {
	TechnicianID int64  `json:"technician_id"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Policy       string `json:"policy"`
	Free         bool   `json:"free"`
}

type slotsResponse struct {
	ServiceID       string              `json:"service_id"`
	DurationMinutes int                 `json:"duration_minutes"`
	Slots           map[string][]string `json:"slots"`
}
