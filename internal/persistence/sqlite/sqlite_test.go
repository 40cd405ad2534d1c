package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

func newTestStorage(t *testing.T, opts Options) *Storage {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "scheduling.db")
	storage, err := Open(dsn, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(context.Background()))
	return storage
}

func seedTechnician(t *testing.T, storage *Storage, email string) persistence.Technician {
	t.Helper()
	technician, err := storage.UpsertTechnician(context.Background(), persistence.Technician{
		Email:       email,
		DisplayName: email,
		Active:      true,
	})
	require.NoError(t, err)
	return technician
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 10, hour, minute, 0, 0, time.UTC)
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})

	require.NoError(t, storage.Migrate(ctx))

	status, err := storage.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Len(t, status.Applied, 2)
	assert.Empty(t, status.Pending)
}

func TestAppointmentRepository_ListUsesOpenIntervalOverlap(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")
	other := seedTechnician(t, storage, "t2@example.com")

	_, err := storage.InsertAppointments(ctx, []persistence.AppointmentInsert{
		{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0)},
		{TechnicianID: tech.ID, Start: at(13, 0), End: at(14, 0), Blocking: true, Notes: "personal time"},
		{TechnicianID: other.ID, Start: at(10, 0), End: at(11, 0)},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter persistence.AppointmentFilter
		want   int
	}{
		{name: "touching end is excluded", filter: persistence.AppointmentFilter{TechnicianIDs: []int64{tech.ID}, From: at(11, 0), To: at(12, 0)}, want: 0},
		{name: "touching start is excluded", filter: persistence.AppointmentFilter{TechnicianIDs: []int64{tech.ID}, From: at(9, 0), To: at(10, 0)}, want: 0},
		{name: "partial overlap", filter: persistence.AppointmentFilter{TechnicianIDs: []int64{tech.ID}, From: at(10, 30), To: at(13, 30)}, want: 2},
		{name: "exclude blocking", filter: persistence.AppointmentFilter{TechnicianIDs: []int64{tech.ID}, From: at(0, 0), To: at(23, 0), ExcludeBlocking: true}, want: 1},
		{name: "all technicians", filter: persistence.AppointmentFilter{From: at(0, 0), To: at(23, 0)}, want: 3},
		{name: "open bounds", filter: persistence.AppointmentFilter{TechnicianIDs: []int64{other.ID}}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ListAppointments(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestAppointmentRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	created, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{
		TechnicianID:  tech.ID,
		Start:         at(10, 0),
		End:           at(11, 0),
		Notes:         `{"case_id":"c-1"}`,
		CustomerPhone: "+1 555 010 2030",
		BookingToken:  "token-1",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := storage.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, got.TechnicianID)
	assert.True(t, got.Start.Equal(at(10, 0)))
	assert.True(t, got.End.Equal(at(11, 0)))
	assert.Equal(t, `{"case_id":"c-1"}`, got.Notes)
	assert.Equal(t, "token-1", got.BookingToken)
	assert.False(t, got.Blocking)

	_, err = storage.GetAppointment(ctx, created.ID+100)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestAppointmentRepository_InsertErrors(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	_, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0), BookingToken: "dup"})
	require.NoError(t, err)

	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(12, 0), End: at(13, 0), BookingToken: "dup"})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(12, 0), End: at(12, 0)})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: 9999, Start: at(12, 0), End: at(13, 0)})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestAppointmentRepository_SubSecondWindowIsRejectedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	start := at(10, 0).Add(200 * time.Millisecond)
	end := at(10, 0).Add(700 * time.Millisecond)

	_, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: start, End: end})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

	count, err := storage.InsertAppointments(ctx, []persistence.AppointmentInsert{
		{TechnicianID: tech.ID, Start: start, End: end, Blocking: true},
	})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
	assert.Zero(t, count)

	created, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{
		TechnicianID: tech.ID,
		Start:        at(10, 0).Add(900 * time.Millisecond),
		End:          at(11, 0).Add(300 * time.Millisecond),
	})
	require.NoError(t, err)
	assert.True(t, created.Start.Equal(at(10, 0)))
	assert.True(t, created.End.Equal(at(11, 0)))
}

func TestAppointmentRepository_BulkInsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	count, err := storage.InsertAppointments(ctx, []persistence.AppointmentInsert{
		{TechnicianID: tech.ID, Start: at(8, 0), End: at(9, 0), Blocking: true},
		{TechnicianID: 9999, Start: at(9, 0), End: at(10, 0), Blocking: true},
	})
	require.Error(t, err)
	assert.Zero(t, count)

	rows, err := storage.ListAppointments(ctx, persistence.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	count, err = storage.InsertAppointments(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppointmentRepository_SlotClaims(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{SlotClaims: true, SlotDuration: time.Hour})
	tech := seedTechnician(t, storage, "t1@example.com")

	first, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)

	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 30), End: at(11, 30)})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	rows, err := storage.ListAppointments(ctx, persistence.AppointmentFilter{TechnicianIDs: []int64{tech.ID}})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "claim failure must roll back the appointment row")

	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0), Blocking: true})
	assert.NoError(t, err, "blocking rows do not claim buckets")

	require.NoError(t, storage.DeleteAppointment(ctx, first.ID))
	_, err = storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0)})
	assert.NoError(t, err, "deleting the booking releases its claim")
}

func TestAppointmentRepository_WithoutSlotClaimsAllowsDoubleBooking(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	for i := 0; i < 2; i++ {
		_, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0)})
		require.NoError(t, err)
	}
}

func TestAppointmentRepository_UpdateDetailsAndDelete(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})
	tech := seedTechnician(t, storage, "t1@example.com")

	created, err := storage.InsertAppointment(ctx, persistence.AppointmentInsert{TechnicianID: tech.ID, Start: at(10, 0), End: at(11, 0), Notes: "before"})
	require.NoError(t, err)

	location := "12 Main St"
	updated, err := storage.UpdateAppointmentDetails(ctx, created.ID, persistence.AppointmentDetails{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, location, updated.Location)
	assert.Equal(t, "before", updated.Notes)

	unchanged, err := storage.UpdateAppointmentDetails(ctx, created.ID, persistence.AppointmentDetails{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)

	_, err = storage.UpdateAppointmentDetails(ctx, created.ID+1, persistence.AppointmentDetails{Location: &location})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, storage.DeleteAppointment(ctx, created.ID))
	assert.ErrorIs(t, storage.DeleteAppointment(ctx, created.ID), persistence.ErrNotFound)
}
