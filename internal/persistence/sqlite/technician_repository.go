package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

const technicianColumns = `id, identity_id, email, display_name, active, created_at`

// TechnicianRepository implements persistence.TechnicianRepository using SQLite.
type TechnicianRepository struct {
	pool   *ConnectionPool
	mapper ErrorMapper
}

// NewTechnicianRepository creates a new SQLite technician repository.
func NewTechnicianRepository(pool *ConnectionPool) *TechnicianRepository {
	return &TechnicianRepository{pool: pool}
}

var _ persistence.TechnicianRepository = (*TechnicianRepository)(nil)

// UpsertTechnician inserts a technician or updates the row with the same
// email. The stored row is returned.
func (r *TechnicianRepository) UpsertTechnician(ctx context.Context, technician persistence.Technician) (persistence.Technician, error) {
	email := normalizeEmail(technician.Email)
	if email == "" {
		return persistence.Technician{}, persistence.ErrConstraintViolation
	}

	createdAt := technician.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO technicians (identity_id, email, display_name, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			identity_id = excluded.identity_id,
			display_name = excluded.display_name,
			active = excluded.active`,
		nullableString(technician.IdentityID),
		email,
		strings.TrimSpace(technician.DisplayName),
		boolToInt(technician.Active),
		formatTime(createdAt),
	)
	if err != nil {
		return persistence.Technician{}, fmt.Errorf("sqlite: upsert technician: %w", r.mapper.MapError(err))
	}
	return r.GetTechnicianByEmail(ctx, email)
}

// GetTechnician retrieves a technician by numeric id.
func (r *TechnicianRepository) GetTechnician(ctx context.Context, id int64) (persistence.Technician, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetTechnicianByEmail looks a technician up case-insensitively.
func (r *TechnicianRepository) GetTechnicianByEmail(ctx context.Context, email string) (persistence.Technician, error) {
	return r.getOne(ctx, "email = ?", normalizeEmail(email))
}

// GetTechnicianByIdentity looks a technician up by identity-store id.
func (r *TechnicianRepository) GetTechnicianByIdentity(ctx context.Context, identityID string) (persistence.Technician, error) {
	if strings.TrimSpace(identityID) == "" {
		return persistence.Technician{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, "identity_id = ?", identityID)
}

func (r *TechnicianRepository) getOne(ctx context.Context, where string, arg any) (persistence.Technician, error) {
	row := r.pool.DB().QueryRowContext(ctx, "SELECT "+technicianColumns+" FROM technicians WHERE "+where, arg)

	var (
		t          persistence.Technician
		identityID sql.NullString
		active     int
		createdAt  string
	)
	if err := row.Scan(&t.ID, &identityID, &t.Email, &t.DisplayName, &active, &createdAt); err != nil {
		return persistence.Technician{}, r.mapper.MapError(err)
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return persistence.Technician{}, err
	}
	t.IdentityID = identityID.String
	t.Active = active != 0
	t.CreatedAt = created
	return t, nil
}

// AddProvider links a technician to a service pool. Linking twice is a no-op.
func (r *TechnicianRepository) AddProvider(ctx context.Context, serviceID string, technicianID int64) error {
	if strings.TrimSpace(serviceID) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO service_providers (service_id, technician_id) VALUES (?, ?)
		ON CONFLICT(service_id, technician_id) DO NOTHING`,
		serviceID, technicianID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add provider: %w", r.mapper.MapError(err))
	}
	return nil
}

// ProviderPool returns the active technicians linked to a service in id order.
func (r *TechnicianRepository) ProviderPool(ctx context.Context, serviceID string) ([]int64, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT sp.technician_id
		FROM service_providers sp
		JOIN technicians t ON t.id = sp.technician_id
		WHERE sp.service_id = ? AND t.active = 1
		ORDER BY sp.technician_id ASC`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: provider pool: %w", r.mapper.MapError(err))
	}
	defer rows.Close()

	var pool []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan provider: %w", err)
		}
		pool = append(pool, id)
	}
	return pool, rows.Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullableString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
