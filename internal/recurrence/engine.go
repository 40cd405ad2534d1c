package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxSpanDays bounds the distance between the first and last date of a
	// rule so a single bulk insert stays small.
	MaxSpanDays = 365
	// DefaultReason is written to the notes of blocks created without one.
	DefaultReason = "personal time"
	// DateLayout is the ISO calendar date accepted for rule bounds.
	DateLayout = "2006-01-02"
)

var (
	// ErrSpanTooLong indicates the date range exceeds MaxSpanDays.
	ErrSpanTooLong = fmt.Errorf("recurrence: date range exceeds %d days", MaxSpanDays)
	// ErrInvalidRange indicates the end date precedes the start date.
	ErrInvalidRange = errors.New("recurrence: end date precedes start date")
	// ErrInvalidTimeOfDay indicates a malformed or inverted HH:MM window.
	ErrInvalidTimeOfDay = errors.New("recurrence: invalid time of day")
	// ErrInvalidWeekday indicates a weekday index outside 0..6.
	ErrInvalidWeekday = errors.New("recurrence: weekday must be between 0 (Sunday) and 6 (Saturday)")
	// ErrNoWeekdays indicates an empty weekday selection.
	ErrNoWeekdays = errors.New("recurrence: at least one weekday is required")
)

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// String renders the value as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// ParseDate parses an ISO calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}

// Weekday converts a 0=Sunday..6=Saturday index.
func Weekday(index int) (time.Weekday, error) {
	if index < 0 || index > 6 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, index)
	}
	return time.Weekday(index), nil
}

// Rule describes recurring unavailability for a technician. Only the
// calendar date of StartDate and EndDate is used; both are inclusive.
type Rule struct {
	TechnicianID int64
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	Weekdays     []time.Weekday
	StartDate    time.Time
	EndDate      time.Time
	Reason       string
}

// Insert is a blocking calendar row ready for a bulk insert.
type Insert struct {
	TechnicianID int64
	Start        time.Time
	End          time.Time
	Blocking     bool
	Notes        string
}

// Engine expands rules into concrete rows in a fixed location.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone rows are generated in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Validate checks a rule without expanding it.
func (e *Engine) Validate(rule Rule) error {
	if rule.StartTime.minutes() >= rule.EndTime.minutes() {
		return fmt.Errorf("%w: %s must be before %s", ErrInvalidTimeOfDay, rule.StartTime, rule.EndTime)
	}
	if len(rule.Weekdays) == 0 {
		return ErrNoWeekdays
	}
	for _, day := range rule.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
		}
	}

	first, last := civil(rule.StartDate), civil(rule.EndDate)
	if last.Before(first) {
		return ErrInvalidRange
	}
	if spanDays(first, last) > MaxSpanDays {
		return ErrSpanTooLong
	}
	return nil
}

// Expand walks the date range day by day, both ends inclusive, and emits
// one blocking row for every day whose weekday is selected. The result may
// be empty; callers must surface that as zero rows created.
func (e *Engine) Expand(rule Rule) ([]Insert, error) {
	if err := e.Validate(rule); err != nil {
		return nil, err
	}

	selected := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		selected[day] = struct{}{}
	}

	reason := strings.TrimSpace(rule.Reason)
	if reason == "" {
		reason = DefaultReason
	}

	loc := e.Location()
	first, last := civil(rule.StartDate), civil(rule.EndDate)
	inserts := make([]Insert, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := selected[day.Weekday()]; !ok {
			continue
		}
		y, m, d := day.Date()
		inserts = append(inserts, Insert{
			TechnicianID: rule.TechnicianID,
			Start:        time.Date(y, m, d, rule.StartTime.Hour, rule.StartTime.Minute, 0, 0, loc),
			End:          time.Date(y, m, d, rule.EndTime.Hour, rule.EndTime.Minute, 0, 0, loc),
			Blocking:     true,
			Notes:        reason,
		})
	}
	return inserts, nil
}

// civil drops the clock and zone, keeping the calendar date in UTC so day
// arithmetic is free of DST shifts.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func spanDays(first, last time.Time) int {
	return int(last.Sub(first).Hours() / 24)
}
