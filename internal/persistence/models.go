package persistence

import "time"

// Technician is a row of the scheduling store. IdentityID is the opaque id
// the case store uses for the same person; Email bridges the two.
type Technician struct {
	ID          int64
	IdentityID  string
	Email       string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}

// Appointment is a calendar row. Notes may embed a case reference; the
// store does not enforce it.
type Appointment struct {
	ID            int64
	TechnicianID  int64
	Start         time.Time
	End           time.Time
	Blocking      bool
	Notes         string
	CustomerPhone string
	Location      string
	BookingToken  string
	CreatedAt     time.Time
}

// AppointmentInsert carries the fields of a new calendar row.
type AppointmentInsert struct {
	TechnicianID  int64
	Start         time.Time
	End           time.Time
	Blocking      bool
	Notes         string
	CustomerPhone string
	Location      string
	BookingToken  string
}

// AppointmentDetails are the fields later enrichment steps may change.
type AppointmentDetails struct {
	Notes    *string
	Location *string
}

// AppointmentFilter narrows appointment queries. Rows are returned when
// they overlap [From, To) with the open-interval rule.
type AppointmentFilter struct {
	TechnicianIDs   []int64
	From            time.Time
	To              time.Time
	ExcludeBlocking bool
}

// CaseStatus is the lifecycle state of a business case.
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusAssigned  CaseStatus = "assigned"
	CaseStatusCompleted CaseStatus = "completed"
)

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusPending, CaseStatusAssigned, CaseStatusCompleted:
		return true
	}
	return false
}

// CustomerIdentity is the customer data copied onto each case.
type CustomerIdentity struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Case is a business record of the document store.
type Case struct {
	ID           string           `json:"id"`
	CustomerID   string           `json:"customer_id"`
	Customer     CustomerIdentity `json:"customer"`
	Type         string           `json:"type"`
	Status       CaseStatus       `json:"status"`
	TechnicianID string           `json:"technician_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CaseUpdate lists the fields of a case to overwrite; nil leaves a field as is.
type CaseUpdate struct {
	Customer     *CustomerIdentity
	Type         *string
	Status       *CaseStatus
	TechnicianID *string
	UpdatedAt    time.Time
}

// Customer is the CRM view of a customer kept in the document store.
type Customer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	SchedulingIntent bool       `json:"scheduling_intent"`
	UnreadCount      int        `json:"unread_count"`
	FollowUpAt       *time.Time `json:"follow_up_at,omitempty"`
	LastContactAt    *time.Time `json:"last_contact_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TechnicianProfile is the identity-store record of a technician.
type TechnicianProfile struct {
	IdentityID  string `json:"identity_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Apply returns c with the non-nil fields of update written over it.
func (c Case) Apply(update CaseUpdate) Case {
	if update.Customer != nil {
		c.Customer = *update.Customer
	}
	if update.Type != nil {
		c.Type = *update.Type
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.TechnicianID != nil {
		c.TechnicianID = *update.TechnicianID
	}
	if !update.UpdatedAt.IsZero() {
		c.UpdatedAt = update.UpdatedAt
	}
	return c
}
