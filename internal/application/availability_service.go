package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

const availabilityServiceName = "AvailabilityService"

// AvailabilityService answers "is this technician free" and "which slots
// can the public book". Appointment rows are read fresh on every call.
type AvailabilityService struct {
	appointments AppointmentStore
	technicians  TechnicianDirectory
	detector     *scheduler.Detector
	slots        *scheduler.SlotGenerator
	now          func() time.Time
	logger       *slog.Logger
}

// NewAvailabilityService wires dependencies for availability queries.
func NewAvailabilityService(appointments AppointmentStore, technicians TechnicianDirectory, detector *scheduler.Detector, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if detector == nil {
		detector = scheduler.NewDetector(scheduler.DefaultTravelBuffer)
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		appointments: appointments,
		technicians:  technicians,
		detector:     detector,
		slots:        scheduler.NewSlotGenerator(detector),
		now:          now,
		logger:       defaultLogger(logger).With("service", availabilityServiceName),
	}
}

// IsFree reports whether technicianID can take [start, end) under policy.
func (s *AvailabilityService) IsFree(ctx context.Context, technicianID int64, start, end time.Time, policy scheduler.Policy) (bool, error) {
	conflicts, err := s.conflicts(ctx, technicianID, start, end, policy)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// EnsureFree returns a *ConflictError when technicianID is busy.
func (s *AvailabilityService) EnsureFree(ctx context.Context, technicianID int64, start, end time.Time, policy scheduler.Policy) error {
	conflicts, err := s.conflicts(ctx, technicianID, start, end, policy)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		serviceLogger(ctx, s.logger, availabilityServiceName, "EnsureFree").InfoContext(ctx, "technician not free",
			"technician_id", technicianID,
			"policy", string(policy),
			"conflicting_appointments", len(conflicts),
		)
		return &ConflictError{TechnicianID: technicianID, Start: start, End: end, Policy: policy}
	}
	return nil
}

func (s *AvailabilityService) conflicts(ctx context.Context, technicianID int64, start, end time.Time, policy scheduler.Policy) ([]scheduler.Commitment, error) {
	vErr := &ValidationError{}
	if technicianID <= 0 {
		vErr.add("technician_id", "technician is required")
	}
	candidate, err := scheduler.NewWindow(start, end)
	if err != nil {
		vErr.add("end", "end must be after start")
	}
	if policy != scheduler.PolicyStrict && policy != scheduler.PolicyBuffered {
		vErr.add("policy", "unknown policy")
	}
	if err := vErr.orNil(); err != nil {
		return nil, err
	}

	lookup := s.detector.LookupWindow(candidate, policy)
	commitments, err := s.loadCommitments(ctx, []int64{technicianID}, lookup)
	if err != nil {
		return nil, err
	}
	return s.detector.Conflicts(commitments[technicianID], candidate, policy)
}

// GenerateSlots offers the slots of serviceID's pool under the buffered policy.
func (s *AvailabilityService) GenerateSlots(ctx context.Context, serviceID string, opts scheduler.SlotOptions) (scheduler.Slots, error) {
	logger := serviceLogger(ctx, s.logger, availabilityServiceName, "GenerateSlots", "service_id", serviceID)

	if err := opts.Validate(); err != nil {
		vErr := &ValidationError{}
		vErr.add("options", err.Error())
		return nil, vErr
	}

	pool, err := s.providerPool(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	horizon := opts.Horizon(now).Expand(s.detector.Buffer())
	commitments, err := s.loadCommitments(ctx, pool, horizon)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.Generate(now, pool, commitments, opts)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "slots generated", "pool_size", len(pool), "slots", slots.Count())
	return slots, nil
}

// FirstFreeProvider returns the first technician of serviceID's pool, in
// pool order, that can take [start, end) under the buffered policy.
func (s *AvailabilityService) FirstFreeProvider(ctx context.Context, serviceID string, start, end time.Time) (int64, error) {
	candidate, err := scheduler.NewWindow(start, end)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("end", "end must be after start")
		return 0, vErr
	}

	pool, err := s.providerPool(ctx, serviceID)
	if err != nil {
		return 0, err
	}

	lookup := s.detector.LookupWindow(candidate, scheduler.PolicyBuffered)
	commitments, err := s.loadCommitments(ctx, pool, lookup)
	if err != nil {
		return 0, err
	}
	for _, technicianID := range pool {
		free, err := s.detector.IsFree(commitments[technicianID], candidate, scheduler.PolicyBuffered)
		if err != nil {
			return 0, err
		}
		if free {
			return technicianID, nil
		}
	}
	return 0, &ConflictError{Start: start, End: end, Policy: scheduler.PolicyBuffered}
}

func (s *AvailabilityService) providerPool(ctx context.Context, serviceID string) ([]int64, error) {
	if serviceID == "" {
		vErr := &ValidationError{}
		vErr.add("service_id", "service is required")
		return nil, vErr
	}
	pool, err := s.technicians.ProviderPool(ctx, serviceID)
	if err != nil {
		return nil, &StoreError{Step: "ProviderPool", Err: err}
	}
	if len(pool) == 0 {
		return nil, ErrNoProviders
	}
	return pool, nil
}

func (s *AvailabilityService) loadCommitments(ctx context.Context, technicianIDs []int64, window scheduler.Window) (map[int64][]scheduler.Commitment, error) {
	rows, err := s.appointments.ListAppointments(ctx, persistence.AppointmentFilter{
		TechnicianIDs: technicianIDs,
		From:          window.Start,
		To:            window.End,
	})
	if err != nil {
		return nil, &StoreError{Step: "ListAppointments", Err: err}
	}

	commitments := make(map[int64][]scheduler.Commitment, len(technicianIDs))
	for _, row := range rows {
		commitments[row.TechnicianID] = append(commitments[row.TechnicianID], commitmentFrom(row))
	}
	return commitments, nil
}

func commitmentFrom(row persistence.Appointment) scheduler.Commitment {
	return scheduler.Commitment{
		AppointmentID: row.ID,
		TechnicianID:  row.TechnicianID,
		Window:        scheduler.Window{Start: row.Start, End: row.End},
		Blocking:      row.Blocking,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound)
}

// storeFailure maps a missing row to ErrNotFound and anything else to a
// StoreError for step.
func storeFailure(err error, step, what string) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return &StoreError{Step: step, Err: err}
}
