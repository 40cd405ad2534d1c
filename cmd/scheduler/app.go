package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/config"
	httptransport "github.com/example/fieldservice-scheduler/internal/http"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/persistence/memory"
	"github.com/example/fieldservice-scheduler/internal/persistence/postgres"
	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite"
	"github.com/example/fieldservice-scheduler/internal/reconcile"
	"github.com/example/fieldservice-scheduler/internal/recurrence"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

// stores holds both backing stores and their health checks.
type stores struct {
	scheduling *sqlite.Storage
	documents  persistence.DocumentStore
	health     map[string]httptransport.HealthCheck
	closers    []func() error
}

// openStores opens and migrates the scheduling store, then opens the case
// store selected by cfg.CaseStoreDriver.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	storage, err := sqlite.Open(cfg.SQLiteDSN, sqlite.Options{
		SlotClaims:   cfg.StrictSlotClaims,
		SlotDuration: cfg.SlotDuration,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open scheduling store: %w", err)
	}
	s := &stores{
		scheduling: storage,
		health:     map[string]httptransport.HealthCheck{"scheduling": storage.Ping},
		closers:    []func() error{storage.Close},
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate scheduling store: %w", err)
	}

	switch cfg.CaseStoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open case store: %w", err)
		}
		if err := postgres.Bootstrap(ctx, db); err != nil {
			_ = db.Close()
			_ = s.Close()
			return nil, fmt.Errorf("bootstrap case store: %w", err)
		}
		store := postgres.NewWithDB(db)
		s.documents = store
		s.health["cases"] = store.HealthPing
		s.closers = append(s.closers, store.Close)
	default:
		s.documents = memory.New()
	}

	logger.Info("stores ready",
		"sqlite_dsn", cfg.SQLiteDSN,
		"case_store", cfg.CaseStoreDriver,
		"strict_slot_claims", cfg.StrictSlotClaims,
	)
	return s, nil
}

// Close releases every store, most recently opened first.
func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// services is the full set of application services.
type services struct {
	availability   *application.AvailabilityService
	blocks         *application.BlockService
	booking        *application.BookingService
	cases          *application.CaseService
	reconciliation *application.ReconciliationService
}

func buildServices(cfg config.Config, s *stores, logger *slog.Logger) *services {
	now := time.Now
	availability := application.NewAvailabilityService(s.scheduling, s.scheduling,
		scheduler.NewDetector(cfg.TravelBuffer), now, logger)
	identity := application.NewIdentityBridge(s.documents, s.scheduling, logger)

	return &services{
		availability: availability,
		blocks:       application.NewBlockService(s.scheduling, availability, recurrence.NewEngine(cfg.Location), logger),
		booking: application.NewBookingService(s.documents, s.scheduling, s.scheduling,
			availability, identity, uuid.NewString, now, logger),
		cases: application.NewCaseService(s.documents, now, logger),
		reconciliation: application.NewReconciliationService(s.documents, s.documents, s.scheduling,
			reconcile.NewEngine(reconcile.WithLocation(cfg.Location)), cfg.ReconcileLookback, now, logger),
	}
}

func slotDefaults(cfg config.Config) scheduler.SlotOptions {
	return scheduler.SlotOptions{
		HorizonDays:  cfg.BookingHorizonDays,
		DayStartHour: cfg.DayStartHour,
		DayEndHour:   cfg.DayEndHour,
		SlotDuration: cfg.SlotDuration,
		Location:     cfg.Location,
	}
}
