package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotOptions() SlotOptions {
	return SlotOptions{
		HorizonDays:  2,
		DayStartHour: 8,
		DayEndHour:   12,
		SlotDuration: time.Hour,
		Location:     time.UTC,
	}
}

func TestSlotGenerator_EmptyPool(t *testing.T) {
	t.Parallel()

	_, err := NewSlotGenerator(nil).Generate(at(9, 0), nil, nil, slotOptions())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSlotGenerator_StartsTomorrowInOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 9, 17, 0, 0, 0, time.UTC)
	slots, err := NewSlotGenerator(nil).Generate(now, []int64{1}, nil, slotOptions())
	require.NoError(t, err)

	require.Len(t, slots, 2)
	day := slots["2024-01-10"]
	require.Len(t, day, 4)
	for i, start := range day {
		assert.Equal(t, at(8+i, 0), start)
	}
	assert.Len(t, slots["2024-01-11"], 4)
	assert.Equal(t, 8, slots.Count())
	assert.NotContains(t, slots, "2024-01-09")
}

func TestSlotGenerator_BufferExcludesGapBetweenBookings(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 9, 17, 0, 0, 0, time.UTC)
	opts := slotOptions()
	opts.HorizonDays = 1
	opts.DayStartHour = 6
	opts.DayEndHour = 18

	// A ends 10:00, B starts 10:30: they do not overlap but the gap is
	// shorter than the buffer.
	commitments := map[int64][]Commitment{
		1: {
			{TechnicianID: 1, Window: Window{Start: at(9, 0), End: at(10, 0)}},
			{TechnicianID: 1, Window: Window{Start: at(10, 30), End: at(11, 30)}},
		},
	}

	slots, err := NewSlotGenerator(NewDetector(DefaultTravelBuffer)).Generate(now, []int64{1}, commitments, opts)
	require.NoError(t, err)

	exclusion := Window{Start: at(8, 0), End: at(12, 30)}
	for _, start := range slots["2024-01-10"] {
		candidate := Window{Start: start, End: start.Add(time.Hour)}
		assert.False(t, candidate.Overlaps(exclusion), "slot %s overlaps combined exclusion window", start)
	}
	assert.Equal(t, []time.Time{at(6, 0), at(7, 0), at(13, 0), at(14, 0), at(15, 0), at(16, 0), at(17, 0)}, slots["2024-01-10"])
}

func TestSlotGenerator_PooledOr(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 9, 17, 0, 0, 0, time.UTC)
	opts := slotOptions()
	opts.HorizonDays = 1

	busyAllDay := []Commitment{{TechnicianID: 1, Window: Window{Start: at(0, 0), End: at(23, 0)}}}

	slots, err := NewSlotGenerator(nil).Generate(now, []int64{1}, map[int64][]Commitment{1: busyAllDay}, opts)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = NewSlotGenerator(nil).Generate(now, []int64{1, 2}, map[int64][]Commitment{1: busyAllDay}, opts)
	require.NoError(t, err)
	assert.Len(t, slots["2024-01-10"], 4)
}

func TestSlotOptions_Validate(t *testing.T) {
	t.Parallel()

	bad := []SlotOptions{
		{HorizonDays: 0, DayStartHour: 8, DayEndHour: 18, SlotDuration: time.Hour},
		{HorizonDays: 1, DayStartHour: 18, DayEndHour: 8, SlotDuration: time.Hour},
		{HorizonDays: 1, DayStartHour: 8, DayEndHour: 25, SlotDuration: time.Hour},
		{HorizonDays: 1, DayStartHour: 8, DayEndHour: 9, SlotDuration: 0},
		{HorizonDays: 1, DayStartHour: 8, DayEndHour: 9, SlotDuration: 2 * time.Hour},
		{HorizonDays: MaxHorizonDays + 1, DayStartHour: 8, DayEndHour: 18, SlotDuration: time.Hour},
		{HorizonDays: 1 << 40, DayStartHour: 8, DayEndHour: 18, SlotDuration: time.Hour},
		{HorizonDays: 1, DayStartHour: 8, DayEndHour: 18, SlotDuration: time.Second},
		{HorizonDays: 1, DayStartHour: 8, DayEndHour: 18, SlotDuration: MinSlotDuration - time.Minute},
	}
	for _, opts := range bad {
		assert.ErrorIs(t, opts.Validate(), ErrInvalidSlotOptions)
	}
	assert.NoError(t, slotOptions().Validate())

	edge := SlotOptions{HorizonDays: MaxHorizonDays, DayStartHour: 8, DayEndHour: 18, SlotDuration: MinSlotDuration}
	assert.NoError(t, edge.Validate())
}

func TestSlotOptions_Horizon(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 9, 17, 0, 0, 0, time.UTC)
	horizon := slotOptions().Horizon(now)
	assert.Equal(t, time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC), horizon.Start)
	assert.Equal(t, time.Date(2024, time.January, 11, 12, 0, 0, 0, time.UTC), horizon.End)
}
