package testfixtures

import (
	"sync"
	"time"
)

// Clock is the time source handed to services under test. Lead times,
// booking horizons, case follow-ups and the reconciliation lookback all read
// it, so a test can move it and observe those windows shift without sleeping.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start. A zero start selects ReferenceTime,
// the Wednesday morning every fixture is laid out around.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now reports the instant the clock currently holds.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns the method value Now, the shape service constructors take.
// Calling it on a nil clock yields time.Now so production wiring can share
// code paths with tests.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t, backwards or forwards.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetAt moves the clock to hour:minute UTC on the day it currently shows,
// matching the layout At uses for the reference day.
func (c *Clock) SetAt(hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.current.UTC().Date()
	c.current = time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
	return c.current
}

// Advance moves the clock forward by d and returns the new instant. Whole
// days are the usual step when a test walks across booking horizons or the
// reconciliation lookback.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
