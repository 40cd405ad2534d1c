package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/fieldservice-scheduler/internal/metrics"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/recurrence"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

const blockServiceName = "BlockService"

// BlockService writes unavailability rows.
type BlockService struct {
	appointments AppointmentStore
	availability *AvailabilityService
	engine       *recurrence.Engine
	logger       *slog.Logger
}

// NewBlockService wires dependencies for blocking operations.
func NewBlockService(appointments AppointmentStore, availability *AvailabilityService, engine *recurrence.Engine, logger *slog.Logger) *BlockService {
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	return &BlockService{
		appointments: appointments,
		availability: availability,
		engine:       engine,
		logger:       defaultLogger(logger).With("service", blockServiceName),
	}
}

// BlockTime lets staff block their own time. The strict policy applies:
// a block cannot overlap an existing row of the same technician.
func (s *BlockService) BlockTime(ctx context.Context, technicianID int64, start, end time.Time, reason string) (persistence.Appointment, error) {
	logger := serviceLogger(ctx, s.logger, blockServiceName, "BlockTime", "technician_id", technicianID)

	if err := s.availability.EnsureFree(ctx, technicianID, start, end, scheduler.PolicyStrict); err != nil {
		return persistence.Appointment{}, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = recurrence.DefaultReason
	}

	created, err := s.appointments.InsertAppointment(ctx, persistence.AppointmentInsert{
		TechnicianID: technicianID,
		Start:        start,
		End:          end,
		Blocking:     true,
		Notes:        reason,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to insert block", "error", err)
		return persistence.Appointment{}, &StoreError{Step: "InsertAppointment", Err: err}
	}

	metrics.RecordBlocks("single", 1)
	logger.InfoContext(ctx, "time blocked", "appointment_id", created.ID)
	return created, nil
}

// CreateRecurringBlocks expands the rule and bulk-inserts the rows without
// any conflict check. Existing bookings the new rows overlap are counted
// and returned so operators can follow up. A rule that matches no day
// returns ErrNoOccurrences.
func (s *BlockService) CreateRecurringBlocks(ctx context.Context, req RecurrenceRequest) (RecurrenceResult, error) {
	logger := serviceLogger(ctx, s.logger, blockServiceName, "CreateRecurringBlocks", "technician_id", req.TechnicianID)

	rule, err := s.parseRule(req)
	if err != nil {
		return RecurrenceResult{}, err
	}

	inserts, err := s.engine.Expand(rule)
	if err != nil {
		return RecurrenceResult{}, recurrenceValidationError(err)
	}
	if len(inserts) == 0 {
		logger.WarnContext(ctx, "recurrence rule matched no day", "start_date", req.StartDate, "end_date", req.EndDate, "weekdays", req.Weekdays)
		return RecurrenceResult{}, ErrNoOccurrences
	}

	overlapping, err := s.countOverlappingBookings(ctx, req.TechnicianID, inserts)
	if err != nil {
		return RecurrenceResult{}, err
	}

	rows := make([]persistence.AppointmentInsert, len(inserts))
	for i, insert := range inserts {
		rows[i] = persistence.AppointmentInsert{
			TechnicianID: insert.TechnicianID,
			Start:        insert.Start,
			End:          insert.End,
			Blocking:     insert.Blocking,
			Notes:        insert.Notes,
		}
	}

	created, err := s.appointments.InsertAppointments(ctx, rows)
	if err != nil {
		logger.ErrorContext(ctx, "bulk insert failed", "rows", len(rows), "error", err)
		return RecurrenceResult{}, &StoreError{Step: "InsertAppointments", Err: err}
	}

	metrics.RecordBlocks("recurring", created)
	if overlapping > 0 {
		logger.WarnContext(ctx, "recurring blocks overlap existing bookings", "created", created, "overlapping_bookings", overlapping)
	} else {
		logger.InfoContext(ctx, "recurring blocks created", "created", created)
	}
	return RecurrenceResult{Created: created, OverlappingBookings: overlapping}, nil
}

func (s *BlockService) parseRule(req RecurrenceRequest) (recurrence.Rule, error) {
	vErr := &ValidationError{}
	if req.TechnicianID <= 0 {
		vErr.add("technician_id", "technician is required")
	}

	startTime, err := recurrence.ParseTimeOfDay(req.StartTime)
	if err != nil {
		vErr.add("start_time", "expected HH:MM")
	}
	endTime, err := recurrence.ParseTimeOfDay(req.EndTime)
	if err != nil {
		vErr.add("end_time", "expected HH:MM")
	}
	startDate, err := recurrence.ParseDate(req.StartDate)
	if err != nil {
		vErr.add("start_date", "expected YYYY-MM-DD")
	}
	endDate, err := recurrence.ParseDate(req.EndDate)
	if err != nil {
		vErr.add("end_date", "expected YYYY-MM-DD")
	}

	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, index := range req.Weekdays {
		day, err := recurrence.Weekday(index)
		if err != nil {
			vErr.add("weekdays", "weekday indices must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
		weekdays = append(weekdays, day)
	}
	if len(req.Weekdays) == 0 {
		vErr.add("weekdays", "at least one weekday is required")
	}

	if err := vErr.orNil(); err != nil {
		return recurrence.Rule{}, err
	}

	rule := recurrence.Rule{
		TechnicianID: req.TechnicianID,
		StartTime:    startTime,
		EndTime:      endTime,
		Weekdays:     weekdays,
		StartDate:    startDate,
		EndDate:      endDate,
		Reason:       req.Reason,
	}
	if err := s.engine.Validate(rule); err != nil {
		return recurrence.Rule{}, recurrenceValidationError(err)
	}
	return rule, nil
}

func (s *BlockService) countOverlappingBookings(ctx context.Context, technicianID int64, inserts []recurrence.Insert) (int, error) {
	first, last := inserts[0], inserts[len(inserts)-1]
	bookings, err := s.appointments.ListAppointments(ctx, persistence.AppointmentFilter{
		TechnicianIDs:   []int64{technicianID},
		From:            first.Start,
		To:              last.End,
		ExcludeBlocking: true,
	})
	if err != nil {
		return 0, &StoreError{Step: "ListAppointments", Err: err}
	}

	count := 0
	for _, booking := range bookings {
		window := scheduler.Window{Start: booking.Start, End: booking.End}
		for _, insert := range inserts {
			if window.Overlaps(scheduler.Window{Start: insert.Start, End: insert.End}) {
				count++
				break
			}
		}
	}
	return count, nil
}

func recurrenceValidationError(err error) error {
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrSpanTooLong):
		vErr.add("end_date", "date range must not exceed 365 days")
	case errors.Is(err, recurrence.ErrInvalidRange):
		vErr.add("end_date", "end date must not be before start date")
	case errors.Is(err, recurrence.ErrInvalidTimeOfDay):
		vErr.add("end_time", "end time must be after start time")
	case errors.Is(err, recurrence.ErrInvalidWeekday), errors.Is(err, recurrence.ErrNoWeekdays):
		vErr.add("weekdays", err.Error())
	default:
		return err
	}
	return vErr
}
