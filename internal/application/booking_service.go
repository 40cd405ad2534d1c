package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/fieldservice-scheduler/internal/caseref"
	"github.com/example/fieldservice-scheduler/internal/metrics"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/saga"
)

const bookingServiceName = "BookingService"

// Saga step names.
const (
	StepCreateCase        = "CreateCase"
	StepBuildReference    = "BuildReference"
	StepInsertAppointment = "InsertAppointment"
)

// BookingService creates a case and its calendar row as two writes against
// stores that share no transaction, and deletes them again in reverse.
type BookingService struct {
	cases        CaseStore
	appointments AppointmentStore
	technicians  TechnicianDirectory
	availability *AvailabilityService
	identity     *IdentityBridge
	newToken     func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(cases CaseStore, appointments AppointmentStore, technicians TechnicianDirectory, availability *AvailabilityService, identity *IdentityBridge, newToken func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if newToken == nil {
		newToken = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		cases:        cases,
		appointments: appointments,
		technicians:  technicians,
		availability: availability,
		identity:     identity,
		newToken:     newToken,
		now:          now,
		logger:       defaultLogger(logger).With("service", bookingServiceName),
	}
}

// Book rechecks the technician under the channel's policy and runs the
// CreateCase, BuildReference, InsertAppointment saga. A failed
// InsertAppointment deletes the case before the error is returned.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (BookingResult, error) {
	if req.Channel == "" {
		req.Channel = ChannelStaff
	}
	logger := serviceLogger(ctx, s.logger, bookingServiceName, "Book", "channel", string(req.Channel))

	if err := validateBooking(req); err != nil {
		return BookingResult{}, err
	}

	if err := s.resolveTechnician(ctx, &req); err != nil {
		return BookingResult{}, err
	}
	logger = logger.With("technician_id", req.TechnicianID)

	policy := req.Channel.Policy()
	if err := s.availability.EnsureFree(ctx, req.TechnicianID, req.Start, req.End, policy); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.RecordBooking(string(req.Channel), metrics.OutcomeConflict)
		}
		return BookingResult{}, err
	}

	var (
		created     persistence.Case
		notes       string
		appointment persistence.Appointment
	)

	booking := saga.New("booking", logger).
		Step(StepCreateCase, func(ctx context.Context) error {
			now := s.now().UTC()
			var err error
			created, err = s.cases.InsertCase(ctx, persistence.Case{
				CustomerID:   req.CustomerID,
				Customer:     req.Customer,
				Type:         strings.TrimSpace(req.CaseType),
				Status:       persistence.CaseStatusAssigned,
				TechnicianID: req.TechnicianIdentityID,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			return err
		}).
		Compensate(StepCreateCase, func(ctx context.Context) error {
			return s.cases.DeleteCase(ctx, created.ID)
		}).
		Step(StepBuildReference, func(context.Context) error {
			var err error
			notes, err = caseref.New(created.ID).WithNote(req.Notes).Encode()
			return err
		}).
		Step(StepInsertAppointment, func(ctx context.Context) error {
			var err error
			appointment, err = s.appointments.InsertAppointment(ctx, persistence.AppointmentInsert{
				TechnicianID:  req.TechnicianID,
				Start:         req.Start,
				End:           req.End,
				Notes:         notes,
				CustomerPhone: req.Customer.Phone,
				Location:      req.Location,
				BookingToken:  s.newToken(),
			})
			return err
		})

	if err := booking.Execute(ctx); err != nil {
		return BookingResult{}, s.bookingFailure(ctx, logger, req, created.ID, err)
	}

	metrics.RecordBooking(string(req.Channel), metrics.OutcomeBooked)
	logger.InfoContext(ctx, "booking created", "case_id", created.ID, "appointment_id", appointment.ID)
	return BookingResult{Case: created, Appointment: appointment}, nil
}

func (s *BookingService) bookingFailure(ctx context.Context, logger *slog.Logger, req BookingRequest, caseID string, err error) error {
	var compErr *saga.CompensationError
	if errors.As(err, &compErr) {
		metrics.RecordSagaStepFailure(compErr.StepError.Step)
		metrics.RecordBooking(string(req.Channel), metrics.OutcomeIncident)
		logger.ErrorContext(ctx, "booking compensation failed",
			"incident", "data_integrity",
			"case_id", caseID,
			"failed_step", compErr.StepError.Step,
			"error", compErr.StepError.Err,
			"compensation_error", compErr.Err,
		)
		return &CompensationFailure{
			Step:         compErr.StepError.Step,
			CaseID:       caseID,
			Original:     compErr.StepError.Err,
			Compensation: compErr.Err,
		}
	}

	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return err
	}
	metrics.RecordSagaStepFailure(stepErr.Step)

	// A taken slot claim is business as usual, not an operational failure.
	if stepErr.Step == StepInsertAppointment && errors.Is(stepErr.Err, persistence.ErrDuplicate) {
		metrics.RecordBooking(string(req.Channel), metrics.OutcomeConflict)
		logger.InfoContext(ctx, "slot claimed concurrently", "compensated", stepErr.Compensated)
		return &ConflictError{TechnicianID: req.TechnicianID, Start: req.Start, End: req.End, Policy: req.Channel.Policy()}
	}

	outcome := metrics.OutcomeFailed
	if len(stepErr.Compensated) > 0 {
		outcome = metrics.OutcomeCompensated
	}
	metrics.RecordBooking(string(req.Channel), outcome)
	logger.WarnContext(ctx, "booking failed", "failed_step", stepErr.Step, "compensated", stepErr.Compensated, "error", stepErr.Err)
	return &StoreError{Step: stepErr.Step, Err: stepErr.Err}
}

// resolveTechnician fills whichever of the two technician ids is missing.
func (s *BookingService) resolveTechnician(ctx context.Context, req *BookingRequest) error {
	if req.TechnicianID <= 0 {
		id, err := s.identity.ResolveSchedulingID(ctx, req.TechnicianIdentityID)
		if err != nil {
			return err
		}
		req.TechnicianID = id
		return nil
	}
	if req.TechnicianIdentityID != "" {
		return nil
	}

	technician, err := s.technicians.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		return storeFailure(err, "GetTechnician", fmt.Sprintf("technician %d", req.TechnicianID))
	}
	if technician.IdentityID == "" {
		return fmt.Errorf("technician %d: %w", req.TechnicianID, ErrTechnicianNotSynchronized)
	}
	req.TechnicianIdentityID = technician.IdentityID
	return nil
}

func validateBooking(req BookingRequest) error {
	vErr := &ValidationError{}
	if req.TechnicianID <= 0 && strings.TrimSpace(req.TechnicianIdentityID) == "" {
		vErr.add("technician", "technician id or identity id is required")
	}
	if req.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if req.End.IsZero() {
		vErr.add("end", "end is required")
	} else if !req.End.After(req.Start) {
		vErr.add("end", "end must be after start")
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		vErr.add("customer.name", "customer name is required")
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		vErr.add("customer.phone", "customer phone is required")
	}
	if strings.TrimSpace(req.CaseType) == "" {
		vErr.add("case_type", "case type is required")
	}
	switch req.Channel {
	case ChannelStaff, ChannelPublic:
	default:
		vErr.add("channel", "unknown booking channel")
	}
	return vErr.orNil()
}

// BookPublic books the first technician of the service pool that is free
// under the buffered policy.
func (s *BookingService) BookPublic(ctx context.Context, req PublicBookingRequest) (BookingResult, error) {
	logger := serviceLogger(ctx, s.logger, bookingServiceName, "BookPublic", "service_id", req.ServiceID)

	technicianID, err := s.availability.FirstFreeProvider(ctx, req.ServiceID, req.Start, req.End)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.RecordBooking(string(ChannelPublic), metrics.OutcomeConflict)
		}
		return BookingResult{}, err
	}
	logger.DebugContext(ctx, "provider selected", "technician_id", technicianID)

	return s.Book(ctx, BookingRequest{
		TechnicianID: technicianID,
		Start:        req.Start,
		End:          req.End,
		CustomerID:   req.CustomerID,
		Customer:     req.Customer,
		CaseType:     req.CaseType,
		Notes:        req.Notes,
		Channel:      ChannelPublic,
	})
}

// DeleteAppointment deletes the case referenced by the appointment, then
// the appointment. A reference to a case that is already gone is reported
// in the result, not as an error.
func (s *BookingService) DeleteAppointment(ctx context.Context, id int64) (DeleteResult, error) {
	logger := serviceLogger(ctx, s.logger, bookingServiceName, "DeleteAppointment", "appointment_id", id)
	result := DeleteResult{AppointmentID: id}

	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return result, storeFailure(err, "GetAppointment", fmt.Sprintf("appointment %d", id))
	}

	ref, err := caseref.Parse(appointment.Notes)
	switch {
	case err == nil:
		result.CaseID = ref.CaseID
		if err := s.cases.DeleteCase(ctx, ref.CaseID); err != nil {
			if !isNotFound(err) {
				logger.ErrorContext(ctx, "failed to delete linked case", "case_id", ref.CaseID, "error", err)
				return result, &StoreError{Step: "DeleteCase", Err: err}
			}
			result.CaseAlreadyGone = true
			logger.InfoContext(ctx, "linked case already gone", "case_id", ref.CaseID)
		} else {
			result.CaseDeleted = true
		}
	case errors.Is(err, caseref.ErrMalformed):
		logger.WarnContext(ctx, "appointment carries a malformed case reference", "error", err)
	}

	if err := s.appointments.DeleteAppointment(ctx, id); err != nil {
		return result, storeFailure(err, "DeleteAppointment", fmt.Sprintf("appointment %d", id))
	}

	logger.InfoContext(ctx, "appointment deleted", "case_id", result.CaseID, "case_deleted", result.CaseDeleted)
	return result, nil
}

// EnrichAppointment sets the location or staff note of an appointment. On
// a row linked to a case the note is written inside the reference so the
// link survives.
func (s *BookingService) EnrichAppointment(ctx context.Context, id int64, req AppointmentEnrichment) (persistence.Appointment, error) {
	logger := serviceLogger(ctx, s.logger, bookingServiceName, "EnrichAppointment", "appointment_id", id)

	if req.Location == nil && req.Note == nil {
		vErr := &ValidationError{}
		vErr.add("location", "location or note is required")
		return persistence.Appointment{}, vErr
	}

	details := persistence.AppointmentDetails{Location: req.Location}
	if req.Note != nil {
		appointment, err := s.appointments.GetAppointment(ctx, id)
		if err != nil {
			return persistence.Appointment{}, storeFailure(err, "GetAppointment", fmt.Sprintf("appointment %d", id))
		}
		notes := *req.Note
		ref, err := caseref.Parse(appointment.Notes)
		switch {
		case err == nil:
			notes, err = ref.WithNote(*req.Note).Encode()
			if err != nil {
				return persistence.Appointment{}, fmt.Errorf("encode case reference: %w", err)
			}
		case errors.Is(err, caseref.ErrMalformed):
			logger.WarnContext(ctx, "overwriting malformed case reference", "error", err)
		}
		details.Notes = &notes
	}

	updated, err := s.appointments.UpdateAppointmentDetails(ctx, id, details)
	if err != nil {
		return persistence.Appointment{}, storeFailure(err, "UpdateAppointmentDetails", fmt.Sprintf("appointment %d", id))
	}
	logger.InfoContext(ctx, "appointment enriched", "location_set", req.Location != nil, "note_set", req.Note != nil)
	return updated, nil
}
