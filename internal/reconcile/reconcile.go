// Package reconcile joins calendar rows with business cases through the
// weak reference carried in appointment notes, falling back to phone
// numbers, and classifies every customer for operator follow-up. It is
// pure: callers pass snapshots of both stores and nothing is written.
package reconcile

import (
	"errors"
	"sort"
	"time"

	"github.com/example/fieldservice-scheduler/internal/caseref"
	"github.com/example/fieldservice-scheduler/internal/persistence"
)

// Classification describes whether intent and calendar state agree.
type Classification string

const (
	// ClassificationNone means no intent signal and no appointment.
	ClassificationNone       Classification = ""
	ClassificationOK         Classification = "OK"
	ClassificationManual     Classification = "MANUAL"
	ClassificationErrorGhost Classification = "ERROR_GHOST"
)

// Match records how the appointment of a view was found.
type Match string

const (
	MatchNone       Match = "none"
	MatchStructured Match = "structured"
	MatchPhone      Match = "phone"
)

// MatchedAppointment is the calendar side of a view.
type MatchedAppointment struct {
	ID           int64     `json:"id"`
	TechnicianID int64     `json:"technician_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	CaseID       string    `json:"case_id,omitempty"`
}

// View is the reconciled state of one customer.
type View struct {
	CustomerID     string              `json:"customer_id"`
	Name           string              `json:"name"`
	Phone          string              `json:"phone"`
	UnreadCount    int                 `json:"unread_count"`
	FollowUpAt     *time.Time          `json:"follow_up_at,omitempty"`
	Appointment    *MatchedAppointment `json:"appointment,omitempty"`
	Cases          []persistence.Case  `json:"cases"`
	Match          Match               `json:"match"`
	Classification Classification      `json:"classification"`
	Priority       Priority            `json:"priority"`
}

// DanglingReference is an appointment whose reference names a case that
// does not exist.
type DanglingReference struct {
	AppointmentID int64     `json:"appointment_id"`
	TechnicianID  int64     `json:"technician_id"`
	CaseID        string    `json:"case_id"`
	Start         time.Time `json:"start"`
}

// MalformedReference is an appointment whose notes look structured but
// cannot be decoded.
type MalformedReference struct {
	AppointmentID int64  `json:"appointment_id"`
	Notes         string `json:"notes"`
	Error         string `json:"error"`
}

// Report is the output of one reconciliation pass.
type Report struct {
	Views       []View               `json:"views"`
	Dangling    []DanglingReference  `json:"dangling"`
	Malformed   []MalformedReference `json:"malformed"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Counts tallies views per classification.
func (r Report) Counts() map[Classification]int {
	counts := make(map[Classification]int)
	for _, v := range r.Views {
		counts[v.Classification]++
	}
	return counts
}

// Snapshot is the input of a pass.
type Snapshot struct {
	Customers    []persistence.Customer
	Cases        []persistence.Case
	Appointments []persistence.Appointment
}

// Engine runs reconciliation passes.
type Engine struct {
	rules    []Rule
	location *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the priority rule list.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithLocation sets the zone used for day boundaries in reminders.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine returns an engine using DefaultRules in UTC unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules, location: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile builds one view per customer, sorted by priority weight
// descending, then name, then id.
func (e *Engine) Reconcile(snapshot Snapshot, now time.Time) Report {
	report := Report{
		Views:       make([]View, 0, len(snapshot.Customers)),
		Dangling:    []DanglingReference{},
		Malformed:   []MalformedReference{},
		GeneratedAt: now,
	}

	caseByID := make(map[string]persistence.Case, len(snapshot.Cases))
	casesByCustomer := make(map[string][]persistence.Case)
	for _, c := range snapshot.Cases {
		caseByID[c.ID] = c
		casesByCustomer[c.CustomerID] = append(casesByCustomer[c.CustomerID], c)
	}

	structured := make(map[string][]MatchedAppointment)
	byPhone := make(map[string][]MatchedAppointment)

	for _, a := range snapshot.Appointments {
		if a.Blocking {
			continue
		}
		matched := MatchedAppointment{ID: a.ID, TechnicianID: a.TechnicianID, Start: a.Start, End: a.End}

		ref, err := caseref.Parse(a.Notes)
		switch {
		case err == nil:
			matched.CaseID = ref.CaseID
			if c, ok := caseByID[ref.CaseID]; ok {
				structured[c.CustomerID] = append(structured[c.CustomerID], matched)
				continue
			}
			report.Dangling = append(report.Dangling, DanglingReference{
				AppointmentID: a.ID,
				TechnicianID:  a.TechnicianID,
				CaseID:        ref.CaseID,
				Start:         a.Start,
			})
		case errors.Is(err, caseref.ErrMalformed):
			report.Malformed = append(report.Malformed, MalformedReference{
				AppointmentID: a.ID,
				Notes:         a.Notes,
				Error:         err.Error(),
			})
		}

		if phone := NormalizePhone(a.CustomerPhone); phone != "" {
			byPhone[phone] = append(byPhone[phone], matched)
		}
	}

	clock := RuleClock{Now: now, Location: e.location}
	for _, customer := range snapshot.Customers {
		view := View{
			CustomerID:  customer.ID,
			Name:        customer.Name,
			Phone:       customer.Phone,
			UnreadCount: customer.UnreadCount,
			FollowUpAt:  customer.FollowUpAt,
			Cases:       casesByCustomer[customer.ID],
			Match:       MatchNone,
		}
		if view.Cases == nil {
			view.Cases = []persistence.Case{}
		}

		if candidates := structured[customer.ID]; len(candidates) > 0 {
			view.Appointment = mostRelevant(candidates, now)
			view.Match = MatchStructured
		} else if phone := NormalizePhone(customer.Phone); phone != "" {
			if candidates := byPhone[phone]; len(candidates) > 0 {
				view.Appointment = mostRelevant(candidates, now)
				view.Match = MatchPhone
			}
		}

		view.Classification = classify(customer.SchedulingIntent, view.Appointment != nil)
		view.Priority = prioritize(e.rules, view, clock)
		report.Views = append(report.Views, view)
	}

	sort.SliceStable(report.Views, func(i, j int) bool {
		a, b := report.Views[i], report.Views[j]
		if a.Priority.Weight != b.Priority.Weight {
			return a.Priority.Weight > b.Priority.Weight
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CustomerID < b.CustomerID
	})

	return report
}

func classify(intent, hasAppointment bool) Classification {
	switch {
	case intent && !hasAppointment:
		return ClassificationErrorGhost
	case hasAppointment && !intent:
		return ClassificationManual
	case intent && hasAppointment:
		return ClassificationOK
	}
	return ClassificationNone
}

// mostRelevant picks the earliest upcoming appointment, else the latest past one.
func mostRelevant(candidates []MatchedAppointment, now time.Time) *MatchedAppointment {
	var upcoming, past *MatchedAppointment
	for i := range candidates {
		c := candidates[i]
		if !c.Start.Before(now) {
			if upcoming == nil || c.Start.Before(upcoming.Start) {
				upcoming = &c
			}
			continue
		}
		if past == nil || c.Start.After(past.Start) {
			past = &c
		}
	}
	if upcoming != nil {
		return upcoming
	}
	return past
}
