package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

var (
	technicianCounter uint64
	customerCounter   uint64
	caseCounter       uint64
)

var referenceTime = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the baseline instant of fixtures: Wednesday 2024-01-10
// 09:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hour:minute on the reference day.
func At(hour, minute int) time.Time {
	y, m, d := referenceTime.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
}

// ---------------------------- Technician fixtures ----------------------------

// TechnicianOption configures a technician fixture.
type TechnicianOption func(*persistence.Technician)

// NewTechnician returns a unique active technician. ID is left for the
// store to assign.
func NewTechnician(opts ...TechnicianOption) persistence.Technician {
	idx := atomic.AddUint64(&technicianCounter, 1)
	technician := persistence.Technician{
		IdentityID:  fmt.Sprintf("identity-%03d", idx),
		Email:       fmt.Sprintf("tech-%03d@example.com", idx),
		DisplayName: fmt.Sprintf("Technician %03d", idx),
		Active:      true,
	}
	for _, opt := range opts {
		opt(&technician)
	}
	return technician
}

// WithTechnicianEmail overrides the email.
func WithTechnicianEmail(email string) TechnicianOption {
	return func(t *persistence.Technician) {
		t.Email = email
	}
}

// WithIdentityID overrides the identity-store id. An empty id leaves the
// technician unsynchronized.
func WithIdentityID(id string) TechnicianOption {
	return func(t *persistence.Technician) {
		t.IdentityID = id
	}
}

// Inactive marks the technician as inactive.
func Inactive() TechnicianOption {
	return func(t *persistence.Technician) {
		t.Active = false
	}
}

// Profile returns the identity-store profile matching technician.
func Profile(technician persistence.Technician) persistence.TechnicianProfile {
	return persistence.TechnicianProfile{
		IdentityID:  technician.IdentityID,
		Email:       technician.Email,
		DisplayName: technician.DisplayName,
	}
}

// ---------------------------- Appointment fixtures ----------------------------

// AppointmentOption configures an appointment insert.
type AppointmentOption func(*persistence.AppointmentInsert)

// NewAppointment returns a one-hour booking for technicianID starting at start.
func NewAppointment(technicianID int64, start time.Time, opts ...AppointmentOption) persistence.AppointmentInsert {
	insert := persistence.AppointmentInsert{
		TechnicianID: technicianID,
		Start:        start,
		End:          start.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&insert)
	}
	return insert
}

// Lasting sets the end to start plus d.
func Lasting(d time.Duration) AppointmentOption {
	return func(a *persistence.AppointmentInsert) {
		a.End = a.Start.Add(d)
	}
}

// Blocking marks the row as a block of unavailability.
func Blocking() AppointmentOption {
	return func(a *persistence.AppointmentInsert) {
		a.Blocking = true
	}
}

// WithNotes sets the notes column.
func WithNotes(notes string) AppointmentOption {
	return func(a *persistence.AppointmentInsert) {
		a.Notes = notes
	}
}

// WithCustomerPhone sets the phone copied onto the row.
func WithCustomerPhone(phone string) AppointmentOption {
	return func(a *persistence.AppointmentInsert) {
		a.CustomerPhone = phone
	}
}

// ------------------------------ Customer fixtures ------------------------------

// CustomerOption configures a customer fixture.
type CustomerOption func(*persistence.Customer)

// NewCustomer returns a unique customer with a ten digit phone number.
func NewCustomer(opts ...CustomerOption) persistence.Customer {
	idx := atomic.AddUint64(&customerCounter, 1)
	customer := persistence.Customer{
		ID:        fmt.Sprintf("customer-%03d", idx),
		Name:      fmt.Sprintf("Customer %03d", idx),
		Phone:     fmt.Sprintf("555%07d", idx),
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&customer)
	}
	return customer
}

// WithCustomerID overrides the id.
func WithCustomerID(id string) CustomerOption {
	return func(c *persistence.Customer) {
		c.ID = id
	}
}

// WithPhone overrides the phone number.
func WithPhone(phone string) CustomerOption {
	return func(c *persistence.Customer) {
		c.Phone = phone
	}
}

// WithSchedulingIntent flags the customer as wanting an appointment.
func WithSchedulingIntent() CustomerOption {
	return func(c *persistence.Customer) {
		c.SchedulingIntent = true
	}
}

// WithUnread sets the unread message count.
func WithUnread(n int) CustomerOption {
	return func(c *persistence.Customer) {
		c.UnreadCount = n
	}
}

// Identity returns the identity block a case copies from customer.
func Identity(customer persistence.Customer) persistence.CustomerIdentity {
	return persistence.CustomerIdentity{Name: customer.Name, Phone: customer.Phone}
}

// -------------------------------- Case fixtures --------------------------------

// CaseOption configures a case fixture.
type CaseOption func(*persistence.Case)

// NewCase returns a pending repair case with a unique id.
func NewCase(opts ...CaseOption) persistence.Case {
	idx := atomic.AddUint64(&caseCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	c := persistence.Case{
		ID:        fmt.Sprintf("case-%03d", idx),
		Customer:  persistence.CustomerIdentity{Name: fmt.Sprintf("Case Customer %03d", idx), Phone: fmt.Sprintf("444%07d", idx)},
		Type:      "repair",
		Status:    persistence.CaseStatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ForCustomer links the case to customer and copies its identity.
func ForCustomer(customer persistence.Customer) CaseOption {
	return func(c *persistence.Case) {
		c.CustomerID = customer.ID
		c.Customer = Identity(customer)
	}
}

// WithStatus overrides the status.
func WithStatus(status persistence.CaseStatus) CaseOption {
	return func(c *persistence.Case) {
		c.Status = status
	}
}
