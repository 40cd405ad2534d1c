// Package postgres is the document case store on PostgreSQL. Each record is
// kept as a JSONB document next to the projection columns it is queried by.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS cases (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_customer ON cases (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_cases_status ON cases (status);

CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS technician_profiles (
    identity_id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    doc JSONB NOT NULL
);
`

const uniqueViolation = "23505"

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap creates the document tables when they do not exist.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: bootstrap schema: %w", err)
	}
	return nil
}

// Store implements persistence.DocumentStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewWithDB constructs a store on an open connection.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

var _ persistence.DocumentStore = (*Store)(nil)

// HealthPing checks connectivity.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Cases ---

func (s *Store) InsertCase(ctx context.Context, c persistence.Case) (persistence.Case, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	doc, err := json.Marshal(c)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: encode case: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO cases (id, customer_id, status, created_at, doc)
        VALUES ($1, $2, $3, $4, $5)
    `, c.ID, c.CustomerID, string(c.Status), c.CreatedAt, doc)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: insert case: %w", mapError(err))
	}
	return c, nil
}

func (s *Store) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	return getCase(ctx, s.db, id, "")
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCase(ctx context.Context, q rowQuerier, id, suffix string) (persistence.Case, error) {
	var doc []byte
	if err := q.QueryRowContext(ctx, `SELECT doc FROM cases WHERE id = $1`+suffix, id).Scan(&doc); err != nil {
		return persistence.Case{}, mapError(err)
	}
	var c persistence.Case
	if err := json.Unmarshal(doc, &c); err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: decode case %s: %w", id, err)
	}
	return c, nil
}

// UpdateCase locks the row, applies update and writes the document back.
func (s *Store) UpdateCase(ctx context.Context, id string, update persistence.CaseUpdate) (persistence.Case, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getCase(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return persistence.Case{}, err
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = s.now().UTC()
	}
	updated := current.Apply(update)

	doc, err := json.Marshal(updated)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: encode case: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE cases SET status = $2, doc = $3 WHERE id = $1`, id, string(updated.Status), doc); err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: update case: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return persistence.Case{}, fmt.Errorf("postgres: commit: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteCase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete case: %w", mapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListCasesByIDs returns the cases that exist among ids, in input order.
func (s *Store) ListCasesByIDs(ctx context.Context, ids []string) ([]persistence.Case, error) {
	if len(ids) == 0 {
		return []persistence.Case{}, nil
	}
	found, err := s.queryCases(ctx, `SELECT doc FROM cases WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]persistence.Case, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	result := make([]persistence.Case, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
			delete(byID, id)
		}
	}
	return result, nil
}

func (s *Store) ListCasesByCustomer(ctx context.Context, customerID string) ([]persistence.Case, error) {
	return s.queryCases(ctx, `SELECT doc FROM cases WHERE customer_id = $1 ORDER BY created_at ASC, id ASC`, customerID)
}

func (s *Store) ListCases(ctx context.Context) ([]persistence.Case, error) {
	return s.queryCases(ctx, `SELECT doc FROM cases ORDER BY created_at ASC, id ASC`)
}

func (s *Store) queryCases(ctx context.Context, query string, args ...any) ([]persistence.Case, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query cases: %w", err)
	}
	defer rows.Close()

	var out []persistence.Case
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c persistence.Case
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("postgres: decode case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Customers ---

func (s *Store) UpsertCustomer(ctx context.Context, customer persistence.Customer) (persistence.Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = s.now().UTC()
	}
	doc, err := json.Marshal(customer)
	if err != nil {
		return persistence.Customer{}, fmt.Errorf("postgres: encode customer: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO customers (id, doc) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
    `, customer.ID, doc)
	if err != nil {
		return persistence.Customer{}, fmt.Errorf("postgres: upsert customer: %w", mapError(err))
	}
	return customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (persistence.Customer, error) {
	var doc []byte
	if err := s.db.QueryRowContext(ctx, `SELECT doc FROM customers WHERE id = $1`, id).Scan(&doc); err != nil {
		return persistence.Customer{}, mapError(err)
	}
	var customer persistence.Customer
	if err := json.Unmarshal(doc, &customer); err != nil {
		return persistence.Customer{}, fmt.Errorf("postgres: decode customer %s: %w", id, err)
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]persistence.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM customers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list customers: %w", err)
	}
	defer rows.Close()

	var out []persistence.Customer
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var customer persistence.Customer
		if err := json.Unmarshal(doc, &customer); err != nil {
			return nil, fmt.Errorf("postgres: decode customer: %w", err)
		}
		out = append(out, customer)
	}
	return out, rows.Err()
}

// --- Technician profiles ---

func (s *Store) UpsertTechnicianProfile(ctx context.Context, profile persistence.TechnicianProfile) error {
	if strings.TrimSpace(profile.IdentityID) == "" {
		return persistence.ErrConstraintViolation
	}
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("postgres: encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO technician_profiles (identity_id, email, doc) VALUES ($1, $2, $3)
        ON CONFLICT (identity_id) DO UPDATE SET email = EXCLUDED.email, doc = EXCLUDED.doc
    `, profile.IdentityID, profile.Email, doc)
	if err != nil {
		return fmt.Errorf("postgres: upsert profile: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetTechnicianProfile(ctx context.Context, identityID string) (persistence.TechnicianProfile, error) {
	var doc []byte
	if err := s.db.QueryRowContext(ctx, `SELECT doc FROM technician_profiles WHERE identity_id = $1`, identityID).Scan(&doc); err != nil {
		return persistence.TechnicianProfile{}, mapError(err)
	}
	var profile persistence.TechnicianProfile
	if err := json.Unmarshal(doc, &profile); err != nil {
		return persistence.TechnicianProfile{}, fmt.Errorf("postgres: decode profile %s: %w", identityID, err)
	}
	return profile, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	}
	return err
}
