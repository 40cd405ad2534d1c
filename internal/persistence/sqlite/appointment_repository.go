package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const appointmentColumns = `id, technician_id, start_at, end_at, is_blocking, notes, customer_phone, location, booking_token, created_at`

// AppointmentRepository implements persistence.AppointmentRepository using SQLite.
type AppointmentRepository struct {
	pool         *ConnectionPool
	mapper       ErrorMapper
	slotClaims   bool
	slotDuration time.Duration
	now          func() time.Time
}

// NewAppointmentRepository creates a new SQLite appointment repository.
// With slotClaims set every real booking also claims its time bucket.
func NewAppointmentRepository(pool *ConnectionPool, slotClaims bool, slotDuration time.Duration) *AppointmentRepository {
	if slotDuration <= 0 {
		slotDuration = time.Hour
	}
	return &AppointmentRepository{
		pool:         pool,
		slotClaims:   slotClaims,
		slotDuration: slotDuration,
		now:          time.Now,
	}
}

var _ persistence.AppointmentRepository = (*AppointmentRepository)(nil)

// ListAppointments returns rows overlapping [filter.From, filter.To) ordered
// by start. A zero bound leaves that side open.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	var (
		clauses []string
		args    []any
	)

	if len(filter.TechnicianIDs) > 0 {
		placeholders := make([]string, len(filter.TechnicianIDs))
		for i, id := range filter.TechnicianIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, "technician_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "start_at < ?")
		args = append(args, formatTime(filter.To))
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "end_at > ?")
		args = append(args, formatTime(filter.From))
	}
	if filter.ExcludeBlocking {
		clauses = append(clauses, "is_blocking = 0")
	}

	query := "SELECT " + appointmentColumns + " FROM appointments"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list appointments: %w", r.mapper.MapError(err))
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate appointments: %w", err)
	}
	return appointments, nil
}

// GetAppointment retrieves a calendar row by id.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error) {
	return r.getAppointment(ctx, r.pool.DB(), id)
}

func (r *AppointmentRepository) getAppointment(ctx context.Context, q querier, id int64) (persistence.Appointment, error) {
	row := q.QueryRowContext(ctx, "SELECT "+appointmentColumns+" FROM appointments WHERE id = ?", id)
	appointment, err := scanAppointment(row)
	if err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return appointment, nil
}

// InsertAppointment writes a single row. With slot claims enabled the row
// and its claim share one transaction.
func (r *AppointmentRepository) InsertAppointment(ctx context.Context, insert persistence.AppointmentInsert) (persistence.Appointment, error) {
	var created persistence.Appointment
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		id, err := r.insert(ctx, tx, insert)
		if err != nil {
			return err
		}
		created, err = r.getAppointment(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.Appointment{}, err
	}
	return created, nil
}

// InsertAppointments writes all rows in one transaction and returns how
// many were written. Any failure rolls back the whole batch.
func (r *AppointmentRepository) InsertAppointments(ctx context.Context, inserts []persistence.AppointmentInsert) (int, error) {
	if len(inserts) == 0 {
		return 0, nil
	}

	count := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, insert := range inserts {
			if _, err := r.insert(ctx, tx, insert); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AppointmentRepository) insert(ctx context.Context, tx *sql.Tx, insert persistence.AppointmentInsert) (int64, error) {
	// Stored times have second precision; compare what will be written.
	insert.Start = insert.Start.Truncate(time.Second)
	insert.End = insert.End.Truncate(time.Second)
	if insert.TechnicianID <= 0 || !insert.End.After(insert.Start) {
		return 0, persistence.ErrConstraintViolation
	}

	token := insert.BookingToken
	if token == "" {
		token = uuid.NewString()
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (technician_id, start_at, end_at, is_blocking, notes, customer_phone, location, booking_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insert.TechnicianID,
		formatTime(insert.Start),
		formatTime(insert.End),
		boolToInt(insert.Blocking),
		insert.Notes,
		insert.CustomerPhone,
		insert.Location,
		token,
		formatTime(r.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert appointment: %w", r.mapper.MapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert appointment id: %w", err)
	}

	if r.slotClaims && !insert.Blocking {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO appointment_slot_claims (technician_id, bucket_start, appointment_id) VALUES (?, ?, ?)`,
			insert.TechnicianID, formatTime(r.bucket(insert.Start)), id,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: claim slot: %w", r.mapper.MapError(err))
		}
	}
	return id, nil
}

func (r *AppointmentRepository) bucket(start time.Time) time.Time {
	return start.UTC().Truncate(r.slotDuration)
}

// UpdateAppointmentDetails applies location and notes enrichment.
func (r *AppointmentRepository) UpdateAppointmentDetails(ctx context.Context, id int64, details persistence.AppointmentDetails) (persistence.Appointment, error) {
	var (
		sets []string
		args []any
	)
	if details.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *details.Notes)
	}
	if details.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *details.Location)
	}
	if len(sets) == 0 {
		return r.GetAppointment(ctx, id)
	}

	args = append(args, id)
	result, err := r.pool.DB().ExecContext(ctx, "UPDATE appointments SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("sqlite: update appointment: %w", r.mapper.MapError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return r.GetAppointment(ctx, id)
}

// DeleteAppointment removes a calendar row; its slot claim goes with it.
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, id int64) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM appointments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete appointment: %w", r.mapper.MapError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete appointment: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var (
		a                 persistence.Appointment
		start, end, added string
		blocking          int
	)
	if err := row.Scan(&a.ID, &a.TechnicianID, &start, &end, &blocking, &a.Notes, &a.CustomerPhone, &a.Location, &a.BookingToken, &added); err != nil {
		return persistence.Appointment{}, err
	}

	var err error
	if a.Start, err = parseTime(start); err != nil {
		return persistence.Appointment{}, err
	}
	if a.End, err = parseTime(end); err != nil {
		return persistence.Appointment{}, err
	}
	if a.CreatedAt, err = parseTime(added); err != nil {
		return persistence.Appointment{}, err
	}
	a.Blocking = blocking != 0
	return a, nil
}
