package application

import (
	"context"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

// AppointmentStore captures the relational calendar operations the services need.
type AppointmentStore interface {
	ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error)
	InsertAppointment(ctx context.Context, insert persistence.AppointmentInsert) (persistence.Appointment, error)
	InsertAppointments(ctx context.Context, inserts []persistence.AppointmentInsert) (int, error)
	UpdateAppointmentDetails(ctx context.Context, id int64, details persistence.AppointmentDetails) (persistence.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

// TechnicianDirectory exposes technician lookups and service pools.
type TechnicianDirectory interface {
	GetTechnician(ctx context.Context, id int64) (persistence.Technician, error)
	GetTechnicianByEmail(ctx context.Context, email string) (persistence.Technician, error)
	ProviderPool(ctx context.Context, serviceID string) ([]int64, error)
}

// CaseStore is the document store side of the saga and case operations.
type CaseStore interface {
	InsertCase(ctx context.Context, c persistence.Case) (persistence.Case, error)
	GetCase(ctx context.Context, id string) (persistence.Case, error)
	UpdateCase(ctx context.Context, id string, update persistence.CaseUpdate) (persistence.Case, error)
	DeleteCase(ctx context.Context, id string) error
	ListCases(ctx context.Context) ([]persistence.Case, error)
}

// CustomerDirectory lists CRM customers.
type CustomerDirectory interface {
	ListCustomers(ctx context.Context) ([]persistence.Customer, error)
}

// ProfileDirectory reads identity-store technician profiles.
type ProfileDirectory interface {
	GetTechnicianProfile(ctx context.Context, identityID string) (persistence.TechnicianProfile, error)
}
