package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout keys generated slots by calendar day.
const DateLayout = "2006-01-02"

// ErrNoProviders indicates the service has no technician in its pool, which
// is a configuration problem rather than a fully booked calendar.
var ErrNoProviders = errors.New("scheduler: no providers linked to service")

// Bounds on slot generation requests.
const (
	MaxHorizonDays  = 365
	MinSlotDuration = 15 * time.Minute
)

// ErrInvalidSlotOptions wraps every slot option validation failure.
var ErrInvalidSlotOptions = errors.New("scheduler: invalid slot options")

// SlotOptions bounds slot generation.
type SlotOptions struct {
	HorizonDays  int
	DayStartHour int
	DayEndHour   int
	SlotDuration time.Duration
	Location     *time.Location
}

// Validate checks the option ranges.
func (o SlotOptions) Validate() error {
	switch {
	case o.HorizonDays <= 0:
		return fmt.Errorf("%w: horizon must be at least one day", ErrInvalidSlotOptions)
	case o.HorizonDays > MaxHorizonDays:
		return fmt.Errorf("%w: horizon exceeds %d days", ErrInvalidSlotOptions, MaxHorizonDays)
	case o.DayStartHour < 0 || o.DayEndHour > 24 || o.DayStartHour >= o.DayEndHour:
		return fmt.Errorf("%w: working hours %d-%d", ErrInvalidSlotOptions, o.DayStartHour, o.DayEndHour)
	case o.SlotDuration < MinSlotDuration:
		return fmt.Errorf("%w: slot duration must be at least %s", ErrInvalidSlotOptions, MinSlotDuration)
	case o.SlotDuration > time.Duration(o.DayEndHour-o.DayStartHour)*time.Hour:
		return fmt.Errorf("%w: slot duration exceeds working hours", ErrInvalidSlotOptions)
	}
	return nil
}

func (o SlotOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// days returns the midnight of each day in [tomorrow, tomorrow+HorizonDays).
func (o SlotOptions) days(now time.Time) []time.Time {
	loc := o.location()
	y, m, d := now.In(loc).Date()
	days := make([]time.Time, 0, o.HorizonDays)
	for i := 1; i <= o.HorizonDays; i++ {
		days = append(days, time.Date(y, m, d+i, 0, 0, 0, 0, loc))
	}
	return days
}

// Horizon is the full range touched by generation, used to load
// commitments in one query per request.
func (o SlotOptions) Horizon(now time.Time) Window {
	days := o.days(now)
	if len(days) == 0 {
		return Window{}
	}
	first, last := days[0], days[len(days)-1]
	return Window{
		Start: atHour(first, o.DayStartHour),
		End:   atHour(last, o.DayEndHour),
	}
}

func atHour(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

// Slots maps a calendar day (DateLayout) to slot starts in chronological order.
type Slots map[string][]time.Time

// Count returns the total number of offered slots.
func (s Slots) Count() int {
	total := 0
	for _, starts := range s {
		total += len(starts)
	}
	return total
}

// SlotGenerator offers slots with pooled-OR semantics: a slot is offered
// when at least one technician of the pool is free under the buffered
// policy. Which technician takes it is decided at booking time.
type SlotGenerator struct {
	detector *Detector
}

// NewSlotGenerator wires a generator around detector.
func NewSlotGenerator(detector *Detector) *SlotGenerator {
	if detector == nil {
		detector = NewDetector(DefaultTravelBuffer)
	}
	return &SlotGenerator{detector: detector}
}

// Generate computes offered slots relative to now. commitments holds the
// existing rows of each pool member, keyed by technician id. Days without
// any free slot are omitted.
func (g *SlotGenerator) Generate(now time.Time, pool []int64, commitments map[int64][]Commitment, opts SlotOptions) (Slots, error) {
	if len(pool) == 0 {
		return nil, ErrNoProviders
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	slots := make(Slots)
	for _, day := range opts.days(now) {
		dayEnd := atHour(day, opts.DayEndHour)
		for start := atHour(day, opts.DayStartHour); !start.Add(opts.SlotDuration).After(dayEnd); start = start.Add(opts.SlotDuration) {
			candidate := Window{Start: start, End: start.Add(opts.SlotDuration)}
			free, err := g.anyFree(pool, commitments, candidate)
			if err != nil {
				return nil, err
			}
			if free {
				key := day.Format(DateLayout)
				slots[key] = append(slots[key], start)
			}
		}
	}
	return slots, nil
}

func (g *SlotGenerator) anyFree(pool []int64, commitments map[int64][]Commitment, candidate Window) (bool, error) {
	for _, technicianID := range pool {
		free, err := g.detector.IsFree(commitments[technicianID], candidate, PolicyBuffered)
		if err != nil {
			return false, err
		}
		if free {
			return true, nil
		}
	}
	return false, nil
}
