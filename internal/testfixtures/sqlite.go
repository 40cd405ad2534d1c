package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated scheduling store on a temporary file.
type SQLiteHarness struct {
	Storage *sqlite.Storage
}

// NewSQLiteHarness opens and migrates a store under tb.TempDir. The store
// is closed by tb.Cleanup.
func NewSQLiteHarness(tb testing.TB, opts sqlite.Options) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduling.db")
	storage, err := sqlite.Open(path, opts)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return &SQLiteHarness{Storage: storage}
}

// SeedTechnician stores technician and links it to every service in services.
func (h *SQLiteHarness) SeedTechnician(tb testing.TB, technician persistence.Technician, services ...string) persistence.Technician {
	tb.Helper()

	ctx := context.Background()
	stored, err := h.Storage.UpsertTechnician(ctx, technician)
	if err != nil {
		tb.Fatalf("failed to seed technician: %v", err)
	}
	for _, service := range services {
		if err := h.Storage.AddProvider(ctx, service, stored.ID); err != nil {
			tb.Fatalf("failed to link technician to %s: %v", service, err)
		}
	}
	return stored
}

// SeedAppointment stores a calendar row.
func (h *SQLiteHarness) SeedAppointment(tb testing.TB, insert persistence.AppointmentInsert) persistence.Appointment {
	tb.Helper()

	stored, err := h.Storage.InsertAppointment(context.Background(), insert)
	if err != nil {
		tb.Fatalf("failed to seed appointment: %v", err)
	}
	return stored
}
