package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 10, hour, minute, 0, 0, time.UTC)
}

func window(startHour, endHour int) Window {
	return Window{Start: at(startHour, 0), End: at(endHour, 0)}
}

func TestDetector_ExampleScenario(t *testing.T) {
	t.Parallel()

	existing := []Commitment{{AppointmentID: 1, TechnicianID: 1, Window: window(10, 11)}}
	detector := NewDetector(DefaultTravelBuffer)

	tests := []struct {
		name      string
		candidate Window
		policy    Policy
		free      bool
	}{
		{name: "strict touching end is free", candidate: window(11, 12), policy: PolicyStrict, free: true},
		{name: "buffered inside post-buffer is taken", candidate: window(11, 12), policy: PolicyBuffered, free: false},
		{name: "strict after buffer is free", candidate: window(12, 13), policy: PolicyStrict, free: true},
		{name: "buffered after buffer is free", candidate: window(12, 13), policy: PolicyBuffered, free: true},
		{name: "buffered ending at pre-buffer is free", candidate: window(8, 9), policy: PolicyBuffered, free: true},
		{name: "buffered ending inside pre-buffer is taken", candidate: Window{Start: at(8, 30), End: at(9, 30)}, policy: PolicyBuffered, free: false},
		{name: "strict overlap is taken", candidate: Window{Start: at(10, 30), End: at(11, 30)}, policy: PolicyStrict, free: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			free, err := detector.IsFree(existing, tt.candidate, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.free, free)
		})
	}
}

func TestDetector_BlockingRowsConflict(t *testing.T) {
	t.Parallel()

	existing := []Commitment{{AppointmentID: 7, TechnicianID: 1, Window: window(14, 18), Blocking: true}}
	conflicts, err := NewDetector(0).Conflicts(existing, window(15, 16), PolicyStrict)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, int64(7), conflicts[0].AppointmentID)
}

func TestDetector_NonOverlappingNeverConflictStrict(t *testing.T) {
	t.Parallel()

	detector := NewDetector(DefaultTravelBuffer)
	base := at(6, 0)
	for offset := 0; offset < 12*60; offset += 15 {
		a := Window{Start: base, End: base.Add(time.Duration(offset+15) * time.Minute)}
		b := Window{Start: a.End.Add(time.Duration(offset%45) * time.Minute), End: a.End.Add(time.Duration(offset%45+30) * time.Minute)}
		free, err := detector.IsFree([]Commitment{{Window: a}}, b, PolicyStrict)
		require.NoError(t, err)
		assert.True(t, free, "a=%v b=%v", a, b)
	}
}

func TestDetector_RejectsInvalidCandidate(t *testing.T) {
	t.Parallel()

	detector := NewDetector(DefaultTravelBuffer)
	for _, candidate := range []Window{window(10, 10), window(11, 10), {}} {
		_, err := detector.IsFree(nil, candidate, PolicyStrict)
		assert.ErrorIs(t, err, ErrInvalidWindow)
	}
}

func TestDetector_UnknownPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewDetector(0).IsFree(nil, window(9, 10), Policy("loose"))
	require.Error(t, err)
}

func TestDetector_LookupWindow(t *testing.T) {
	t.Parallel()

	detector := NewDetector(30 * time.Minute)
	candidate := window(10, 11)
	assert.Equal(t, candidate, detector.LookupWindow(candidate, PolicyStrict))
	assert.Equal(t, Window{Start: at(9, 30), End: at(11, 30)}, detector.LookupWindow(candidate, PolicyBuffered))
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy(" Buffered ")
	require.NoError(t, err)
	assert.Equal(t, PolicyBuffered, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("relaxed")
	assert.Error(t, err)
}

func TestWindow_Overlaps(t *testing.T) {
	t.Parallel()

	assert.False(t, window(9, 10).Overlaps(window(10, 11)))
	assert.True(t, window(9, 11).Overlaps(window(10, 12)))
	assert.True(t, window(9, 12).Overlaps(window(10, 11)))
	assert.Equal(t, time.Hour, window(9, 10).Duration())
}
