package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
	"github.com/example/fieldservice-scheduler/internal/testfixtures"
)

func TestIsFreeAppliesPolicy(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(10, 0)))

	tests := []struct {
		name   string
		start  time.Time
		policy scheduler.Policy
		want   bool
	}{
		{name: "strict overlap", start: testfixtures.At(10, 30), policy: scheduler.PolicyStrict, want: false},
		{name: "strict touching", start: testfixtures.At(11, 0), policy: scheduler.PolicyStrict, want: true},
		{name: "buffered inside buffer", start: testfixtures.At(11, 30), policy: scheduler.PolicyBuffered, want: false},
		{name: "buffered touching buffer", start: testfixtures.At(12, 0), policy: scheduler.PolicyBuffered, want: true},
		{name: "buffered before", start: testfixtures.At(8, 0), policy: scheduler.PolicyBuffered, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, err := stack.Availability.IsFree(ctx, technician.ID, tt.start, tt.start.Add(time.Hour), tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, free)
		})
	}
}

func TestIsFreeCountsBlocks(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician())
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(12, 0), testfixtures.Blocking()))

	free, err := stack.Availability.IsFree(ctx, technician.ID, testfixtures.At(12, 30), testfixtures.At(13, 0), scheduler.PolicyStrict)
	require.NoError(t, err)
	assert.False(t, free)
}

func TestEnsureFreeValidatesInput(t *testing.T) {
	stack := testfixtures.NewStack(t)

	err := stack.Availability.EnsureFree(context.Background(), 0, testfixtures.At(10, 0), testfixtures.At(9, 0), "lenient")

	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "technician_id")
	assert.Contains(t, vErr.FieldErrors, "end")
	assert.Contains(t, vErr.FieldErrors, "policy")
}

func TestGenerateSlotsPoolsProviders(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	first := stack.SeedTechnician(t, testfixtures.NewTechnician(), "hvac")
	tomorrow := testfixtures.At(10, 0).AddDate(0, 0, 1)
	stack.SeedAppointment(t, testfixtures.NewAppointment(first.ID, tomorrow))

	opts := scheduler.SlotOptions{
		HorizonDays:  1,
		DayStartHour: 8,
		DayEndHour:   14,
		SlotDuration: time.Hour,
		Location:     time.UTC,
	}

	slots, err := stack.Availability.GenerateSlots(ctx, "hvac", opts)
	require.NoError(t, err)
	day := tomorrow.Format(scheduler.DateLayout)
	require.Len(t, slots[day], 3)
	assert.Equal(t, 8, slots[day][0].Hour())
	assert.Equal(t, 12, slots[day][1].Hour())
	assert.Equal(t, 13, slots[day][2].Hour())

	stack.SeedTechnician(t, testfixtures.NewTechnician(), "hvac")
	slots, err = stack.Availability.GenerateSlots(ctx, "hvac", opts)
	require.NoError(t, err)
	assert.Len(t, slots[day], 6)
}

func TestGenerateSlotsErrors(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	opts := scheduler.SlotOptions{HorizonDays: 1, DayStartHour: 8, DayEndHour: 18, SlotDuration: time.Hour}

	_, err := stack.Availability.GenerateSlots(ctx, "hvac", opts)
	assert.ErrorIs(t, err, application.ErrNoProviders)
	assert.Equal(t, "no_providers", application.ErrorKind(err))

	_, err = stack.Availability.GenerateSlots(ctx, "", opts)
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "service_id")

	opts.HorizonDays = 0
	_, err = stack.Availability.GenerateSlots(ctx, "hvac", opts)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "options")
}

func TestFirstFreeProviderFollowsPoolOrder(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	first := stack.SeedTechnician(t, testfixtures.NewTechnician(), "hvac")
	stack.SeedTechnician(t, testfixtures.NewTechnician(), "hvac")
	inactive := stack.SeedTechnician(t, testfixtures.NewTechnician(testfixtures.Inactive()), "hvac")

	id, err := stack.Availability.FirstFreeProvider(ctx, "hvac", testfixtures.At(13, 0), testfixtures.At(14, 0))
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)
	assert.NotEqual(t, inactive.ID, id)
}
