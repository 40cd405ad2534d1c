package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/recurrence"
	"github.com/example/fieldservice-scheduler/internal/testfixtures"
)

func TestBlockTime(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())

	block, err := stack.Blocks.BlockTime(ctx, technician.ID, testfixtures.At(12, 0), testfixtures.At(13, 0), "  ")
	require.NoError(t, err)
	assert.True(t, block.Blocking)
	assert.Equal(t, recurrence.DefaultReason, block.Notes)

	_, err = stack.Blocks.BlockTime(ctx, technician.ID, testfixtures.At(12, 30), testfixtures.At(13, 30), "dentist")
	var conflict *application.ConflictError
	require.ErrorAs(t, err, &conflict)

	block, err = stack.Blocks.BlockTime(ctx, technician.ID, testfixtures.At(13, 0), testfixtures.At(14, 0), "dentist")
	require.NoError(t, err)
	assert.Equal(t, "dentist", block.Notes)
}

func mondaysAndWednesdays(technicianID int64) application.RecurrenceRequest {
	return application.RecurrenceRequest{
		TechnicianID: technicianID,
		StartTime:    "09:00",
		EndTime:      "12:00",
		Weekdays:     []int{1, 3},
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-31",
		Reason:       "training",
	}
}

func TestCreateRecurringBlocks(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())

	monday := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, time.January, 9, 10, 0, 0, 0, time.UTC)
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, monday))
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, tuesday))

	result, err := stack.Blocks.CreateRecurringBlocks(ctx, mondaysAndWednesdays(technician.ID))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Created)
	assert.Equal(t, 1, result.OverlappingBookings)

	rows, err := stack.Storage.ListAppointments(ctx, persistence.AppointmentFilter{
		TechnicianIDs: []int64{technician.ID},
	})
	require.NoError(t, err)
	blocks := 0
	for _, row := range rows {
		if row.Blocking {
			blocks++
			assert.Equal(t, "training", row.Notes)
			assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday}, row.Start.Weekday())
			assert.Equal(t, 9, row.Start.Hour())
			assert.Equal(t, 12, row.End.Hour())
		}
	}
	assert.Equal(t, 10, blocks)
}

func TestCreateRecurringBlocksWithoutOccurrences(t *testing.T) {
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())

	req := mondaysAndWednesdays(technician.ID)
	req.StartDate = "2024-01-02"
	req.EndDate = "2024-01-02"

	result, err := stack.Blocks.CreateRecurringBlocks(context.Background(), req)
	assert.ErrorIs(t, err, application.ErrNoOccurrences)
	assert.Zero(t, result.Created)
	assert.Equal(t, "no_occurrences", application.ErrorKind(err))
}

func TestCreateRecurringBlocksValidation(t *testing.T) {
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())

	tests := []struct {
		name   string
		mutate func(*application.RecurrenceRequest)
		fields []string
	}{
		{
			name:   "span over a year",
			mutate: func(r *application.RecurrenceRequest) { r.EndDate = "2025-01-01" },
			fields: []string{"end_date"},
		},
		{
			name:   "end before start",
			mutate: func(r *application.RecurrenceRequest) { r.EndDate = "2023-12-31" },
			fields: []string{"end_date"},
		},
		{
			name:   "inverted times",
			mutate: func(r *application.RecurrenceRequest) { r.StartTime, r.EndTime = "12:00", "09:00" },
			fields: []string{"end_time"},
		},
		{
			name: "malformed input",
			mutate: func(r *application.RecurrenceRequest) {
				r.StartTime = "9am"
				r.StartDate = "01/01/2024"
				r.Weekdays = []int{7}
			},
			fields: []string{"start_time", "start_date", "weekdays"},
		},
		{
			name:   "no weekdays",
			mutate: func(r *application.RecurrenceRequest) { r.Weekdays = nil },
			fields: []string{"weekdays"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mondaysAndWednesdays(technician.ID)
			tt.mutate(&req)

			_, err := stack.Blocks.CreateRecurringBlocks(context.Background(), req)
			var vErr *application.ValidationError
			require.ErrorAs(t, err, &vErr)
			for _, field := range tt.fields {
				assert.Contains(t, vErr.FieldErrors, field)
			}
		})
	}
}

func TestCreateRecurringBlocksAcceptsFullLeapYear(t *testing.T) {
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())

	req := mondaysAndWednesdays(technician.ID)
	req.Weekdays = []int{1}
	req.EndDate = "2024-12-31"

	result, err := stack.Blocks.CreateRecurringBlocks(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 53, result.Created)
}
