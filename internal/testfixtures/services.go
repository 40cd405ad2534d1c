package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/logging"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/persistence/memory"
	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite"
	"github.com/example/fieldservice-scheduler/internal/reconcile"
	"github.com/example/fieldservice-scheduler/internal/recurrence"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

// ReconcileLookback is how far back the reconciliation service loads
// appointments.
const ReconcileLookback = 7 * 24 * time.Hour

// ServiceFactory builds application services on a deterministic clock and
// token sequence.
type ServiceFactory struct {
	Clock   *Clock
	Tokens  *IDGenerator
	Buffer  time.Duration
	Storage sqlite.Options
	Logger  *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory with a one hour buffer, a discarding
// logger and a clock at ReferenceTime.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:  NewClock(time.Time{}),
		Tokens: NewIDGenerator("token"),
		Buffer: scheduler.DefaultTravelBuffer,
		Logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Clock = clock
	}
}

// WithBuffer overrides the travel buffer.
func WithBuffer(buffer time.Duration) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Buffer = buffer
	}
}

// WithSlotClaims turns on the unique slot claim of the scheduling store.
func WithSlotClaims() ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Storage.SlotClaims = true
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Logger = logger
	}
}

// ServiceDeps are the stores services are built on.
type ServiceDeps struct {
	Appointments application.AppointmentStore
	Technicians  application.TechnicianDirectory
	Documents    persistence.DocumentStore
}

// Services is the full set of application services.
type Services struct {
	Availability   *application.AvailabilityService
	Blocks         *application.BlockService
	Booking        *application.BookingService
	Cases          *application.CaseService
	Identity       *application.IdentityBridge
	Reconciliation *application.ReconciliationService
}

// Build wires every service on deps.
func (f *ServiceFactory) Build(deps ServiceDeps) *Services {
	now := f.Clock.NowFunc()
	availability := application.NewAvailabilityService(deps.Appointments, deps.Technicians, scheduler.NewDetector(f.Buffer), now, f.Logger)
	identity := application.NewIdentityBridge(deps.Documents, deps.Technicians, f.Logger)

	return &Services{
		Availability: availability,
		Blocks:       application.NewBlockService(deps.Appointments, availability, recurrence.NewEngine(time.UTC), f.Logger),
		Booking: application.NewBookingService(deps.Documents, deps.Appointments, deps.Technicians,
			availability, identity, f.Tokens.NextFunc(), now, f.Logger),
		Cases:    application.NewCaseService(deps.Documents, now, f.Logger),
		Identity: identity,
		Reconciliation: application.NewReconciliationService(deps.Documents, deps.Documents, deps.Appointments,
			reconcile.NewEngine(reconcile.WithLocation(time.UTC)), ReconcileLookback, now, f.Logger),
	}
}

// Stack is a migrated scheduling store, an in-memory document store and
// the services built on both.
type Stack struct {
	*SQLiteHarness
	Documents *memory.Store
	Factory   *ServiceFactory
	*Services
}

// NewStack assembles a Stack for tb.
func NewStack(tb testing.TB, opts ...ServiceFactoryOption) *Stack {
	tb.Helper()

	factory := NewServiceFactory(opts...)
	storage := factory.Storage
	storage.Logger = factory.Logger
	harness := NewSQLiteHarness(tb, storage)
	documents := memory.New()

	return &Stack{
		SQLiteHarness: harness,
		Documents:     documents,
		Factory:       factory,
		Services: factory.Build(ServiceDeps{
			Appointments: harness.Storage,
			Technicians:  harness.Storage,
			Documents:    documents,
		}),
	}
}

// SeedSynchronized stores technician in both stores so the identity bridge
// resolves it, and links it to services.
func (s *Stack) SeedSynchronized(tb testing.TB, technician persistence.Technician, services ...string) persistence.Technician {
	tb.Helper()

	stored := s.SeedTechnician(tb, technician, services...)
	if err := s.Documents.UpsertTechnicianProfile(tb.Context(), Profile(stored)); err != nil {
		tb.Fatalf("failed to seed profile: %v", err)
	}
	return stored
}
