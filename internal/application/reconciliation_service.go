package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/fieldservice-scheduler/internal/metrics"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/reconcile"
)

const reconciliationServiceName = "ReconciliationService"

// ReconciliationService snapshots both stores and runs the pure engine.
// It never writes to either store.
type ReconciliationService struct {
	customers    CustomerDirectory
	cases        CaseStore
	appointments AppointmentStore
	engine       *reconcile.Engine
	lookback     time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewReconciliationService wires dependencies. Appointments are loaded
// from now-lookback onward with no upper bound; a non-positive lookback
// loads every row.
func NewReconciliationService(customers CustomerDirectory, cases CaseStore, appointments AppointmentStore, engine *reconcile.Engine, lookback time.Duration, now func() time.Time, logger *slog.Logger) *ReconciliationService {
	if engine == nil {
		engine = reconcile.NewEngine()
	}
	if now == nil {
		now = time.Now
	}
	return &ReconciliationService{
		customers:    customers,
		cases:        cases,
		appointments: appointments,
		engine:       engine,
		lookback:     lookback,
		now:          now,
		logger:       defaultLogger(logger).With("service", reconciliationServiceName),
	}
}

// Run performs one reconciliation pass.
func (s *ReconciliationService) Run(ctx context.Context) (reconcile.Report, error) {
	logger := serviceLogger(ctx, s.logger, reconciliationServiceName, "Run")
	now := s.now()

	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return reconcile.Report{}, &StoreError{Step: "ListCustomers", Err: err}
	}
	cases, err := s.cases.ListCases(ctx)
	if err != nil {
		return reconcile.Report{}, &StoreError{Step: "ListCases", Err: err}
	}

	filter := persistence.AppointmentFilter{ExcludeBlocking: true}
	if s.lookback > 0 {
		filter.From = now.Add(-s.lookback)
	}
	appointments, err := s.appointments.ListAppointments(ctx, filter)
	if err != nil {
		return reconcile.Report{}, &StoreError{Step: "ListAppointments", Err: err}
	}

	report := s.engine.Reconcile(reconcile.Snapshot{
		Customers:    customers,
		Cases:        cases,
		Appointments: appointments,
	}, now)

	counts := make(map[string]int)
	for classification, n := range report.Counts() {
		counts[string(classification)] = n
	}
	metrics.RecordReconciliation(counts, len(report.Dangling), len(report.Malformed))

	logger.InfoContext(ctx, "reconciliation completed",
		"customers", len(report.Views),
		"error_ghosts", counts[string(reconcile.ClassificationErrorGhost)],
		"dangling", len(report.Dangling),
		"malformed", len(report.Malformed),
	)
	return report, nil
}
