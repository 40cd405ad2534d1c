package application

import (
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

// Channel is the entry point of a booking. It selects the conflict policy.
type Channel string

const (
	// ChannelStaff books a specific technician directly (strict policy).
	ChannelStaff Channel = "staff"
	// ChannelPublic is the self-service flow (buffered policy).
	ChannelPublic Channel = "public"
)

// Policy returns the conflict policy used for the channel.
func (c Channel) Policy() scheduler.Policy {
	if c == ChannelPublic {
		return scheduler.PolicyBuffered
	}
	return scheduler.PolicyStrict
}

// BookingRequest creates a case and its calendar row.
type BookingRequest struct {
	TechnicianIdentityID string
	TechnicianID         int64
	Start                time.Time
	End                  time.Time
	CustomerID           string
	Customer             persistence.CustomerIdentity
	CaseType             string
	Notes                string
	Location             string
	Channel              Channel
}

// BookingResult acknowledges both writes of a booking.
type BookingResult struct {
	Case        persistence.Case
	Appointment persistence.Appointment
}

// PublicBookingRequest books the first free technician of a service pool.
type PublicBookingRequest struct {
	ServiceID  string
	Start      time.Time
	End        time.Time
	CustomerID string
	Customer   persistence.CustomerIdentity
	CaseType   string
	Notes      string
}

// DeleteResult reports the outcome of a hard delete.
type DeleteResult struct {
	AppointmentID int64
	CaseID        string
	// CaseDeleted is set when the linked case was removed by this call.
	CaseDeleted bool
	// CaseAlreadyGone is set when the reference resolved to no case.
	CaseAlreadyGone bool
}

// AppointmentEnrichment holds the fields staff fill in after booking. Nil
// fields are left unchanged.
type AppointmentEnrichment struct {
	Location *string
	Note     *string
}

// RecurrenceRequest is the wire shape of a recurring block rule.
type RecurrenceRequest struct {
	TechnicianID int64
	StartTime    string
	EndTime      string
	Weekdays     []int
	StartDate    string
	EndDate      string
	Reason       string
}

// RecurrenceResult reports how many rows were written and how many
// existing bookings they now overlap.
type RecurrenceResult struct {
	Created             int
	OverlappingBookings int
}

// CaseUpdateRequest is an administrative edit. A non-empty TechnicianID
// forces the status to assigned whatever Status says.
type CaseUpdateRequest struct {
	Customer     *persistence.CustomerIdentity
	Type         *string
	Status       *persistence.CaseStatus
	TechnicianID *string
}
