package testfixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.True(t, clock.Now().Equal(ReferenceTime()))
	assert.Equal(t, time.Wednesday, clock.Now().Weekday())
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.True(t, clock.Advance(90*time.Minute).Equal(start.Add(90*time.Minute)))

	clock.Set(start.Add(2 * time.Hour))
	assert.True(t, clock.Now().Equal(start.Add(2*time.Hour)))
}

func TestClockNowFuncFollowsClock(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	now := clock.NowFunc()

	clock.Advance(time.Minute)
	assert.True(t, now().Equal(clock.Now()))

	var nilClock *Clock
	assert.False(t, nilClock.NowFunc()().IsZero())
}

func TestClockSetAtKeepsTheCurrentDay(t *testing.T) {
	clock := NewClock(time.Time{})

	assert.True(t, clock.SetAt(14, 30).Equal(At(14, 30)))

	clock.Advance(24 * time.Hour)
	assert.True(t, clock.SetAt(8, 0).Equal(At(8, 0).AddDate(0, 0, 1)))
}
