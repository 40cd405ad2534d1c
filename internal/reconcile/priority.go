package reconcile

import "time"

// Priority weights, highest first.
const (
	WeightUnreadMessages      = 100
	WeightErrorGhost          = 90
	WeightAppointmentReminder = 80
	WeightOverdueFollowUp     = 60
	WeightScheduledFollowUp   = 40
	WeightIdle                = 0
)

// Priority is the urgency assigned to a view and the rule that produced it.
type Priority struct {
	Weight int    `json:"weight"`
	Reason string `json:"reason"`
}

// Rule is one entry of the ordered priority list.
type Rule struct {
	Reason  string
	Weight  int
	Matches func(view View, clock RuleClock) bool
}

// RuleClock gives rules the evaluation instant and local day boundaries.
type RuleClock struct {
	Now      time.Time
	Location *time.Location
}

// EndOfNextDay returns midnight at the end of tomorrow in the clock location.
func (c RuleClock) EndOfNextDay() time.Time {
	local := c.Now.In(c.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d+2, 0, 0, 0, 0, c.Location)
}

// DefaultRules is evaluated top-down; the first match wins.
var DefaultRules = []Rule{
	{
		Reason: "unread_messages",
		Weight: WeightUnreadMessages,
		Matches: func(v View, _ RuleClock) bool {
			return v.UnreadCount > 0
		},
	},
	{
		Reason: "error_ghost",
		Weight: WeightErrorGhost,
		Matches: func(v View, _ RuleClock) bool {
			return v.Classification == ClassificationErrorGhost
		},
	},
	{
		Reason: "appointment_reminder",
		Weight: WeightAppointmentReminder,
		Matches: func(v View, c RuleClock) bool {
			if v.Appointment == nil {
				return false
			}
			start := v.Appointment.Start
			return !start.Before(c.Now) && start.Before(c.EndOfNextDay())
		},
	},
	{
		Reason: "overdue_follow_up",
		Weight: WeightOverdueFollowUp,
		Matches: func(v View, c RuleClock) bool {
			return v.FollowUpAt != nil && v.FollowUpAt.Before(c.Now)
		},
	},
	{
		Reason: "scheduled_follow_up",
		Weight: WeightScheduledFollowUp,
		Matches: func(v View, _ RuleClock) bool {
			return v.FollowUpAt != nil
		},
	},
	{
		Reason: "idle",
		Weight: WeightIdle,
		Matches: func(View, RuleClock) bool {
			return true
		},
	},
}

func prioritize(rules []Rule, view View, clock RuleClock) Priority {
	for _, rule := range rules {
		if rule.Matches(view, clock) {
			return Priority{Weight: rule.Weight, Reason: rule.Reason}
		}
	}
	return Priority{Weight: WeightIdle, Reason: "idle"}
}
