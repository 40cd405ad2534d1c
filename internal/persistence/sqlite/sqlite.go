// Package sqlite is the relational scheduling store: technicians, service
// provider pools and calendar rows on modernc.org/sqlite.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Options tune the store beyond the connection itself.
type Options struct {
	// SlotClaims enables the (technician, time bucket) unique claim written
	// alongside every real booking.
	SlotClaims bool
	// SlotDuration is the claim bucket size. Defaults to one hour.
	SlotDuration time.Duration
	Logger       *slog.Logger
}

// Storage bundles the pool and the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	*AppointmentRepository
	*TechnicianRepository
}

// Open connects to dsn with the default pragmas.
func Open(dsn string, opts Options) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), opts)
}

// OpenWithConfig connects with an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig, opts Options) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SlotDuration <= 0 {
		opts.SlotDuration = time.Hour
	}

	return &Storage{
		pool:                  pool,
		logger:                logger,
		AppointmentRepository: NewAppointmentRepository(pool, opts.SlotClaims, opts.SlotDuration),
		TechnicianRepository:  NewTechnicianRepository(pool),
	}, nil
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies all pending embedded migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.migrationManager().Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.migrationManager().Status(ctx)
}

func (s *Storage) migrationManager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.pool.DB()),
		s.logger,
	)
}
