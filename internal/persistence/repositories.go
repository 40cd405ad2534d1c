package persistence

import (
	"context"
)

// AppointmentRepository is the calendar side of the relational scheduling store.
type AppointmentRepository interface {
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	GetAppointment(ctx context.Context, id int64) (Appointment, error)
	InsertAppointment(ctx context.Context, insert AppointmentInsert) (Appointment, error)
	InsertAppointments(ctx context.Context, inserts []AppointmentInsert) (int, error)
	UpdateAppointmentDetails(ctx context.Context, id int64, details AppointmentDetails) (Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

// TechnicianRepository exposes technicians and service provider pools.
type TechnicianRepository interface {
	UpsertTechnician(ctx context.Context, technician Technician) (Technician, error)
	GetTechnician(ctx context.Context, id int64) (Technician, error)
	GetTechnicianByEmail(ctx context.Context, email string) (Technician, error)
	GetTechnicianByIdentity(ctx context.Context, identityID string) (Technician, error)
	AddProvider(ctx context.Context, serviceID string, technicianID int64) error
	ProviderPool(ctx context.Context, serviceID string) ([]int64, error)
}

// CaseRepository is the document store holding cases.
type CaseRepository interface {
	InsertCase(ctx context.Context, c Case) (Case, error)
	GetCase(ctx context.Context, id string) (Case, error)
	UpdateCase(ctx context.Context, id string, update CaseUpdate) (Case, error)
	DeleteCase(ctx context.Context, id string) error
	ListCasesByIDs(ctx context.Context, ids []string) ([]Case, error)
	ListCasesByCustomer(ctx context.Context, customerID string) ([]Case, error)
	ListCases(ctx context.Context) ([]Case, error)
}

// CustomerRepository holds CRM customer documents.
type CustomerRepository interface {
	UpsertCustomer(ctx context.Context, customer Customer) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
}

// ProfileRepository holds identity-store technician profiles.
type ProfileRepository interface {
	UpsertTechnicianProfile(ctx context.Context, profile TechnicianProfile) error
	GetTechnicianProfile(ctx context.Context, identityID string) (TechnicianProfile, error)
}

// DocumentStore bundles the collections of the document case store.
type DocumentStore interface {
	CaseRepository
	CustomerRepository
	ProfileRepository
}
