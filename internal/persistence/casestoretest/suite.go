// Package casestoretest holds the compliance suite every document case
// store must pass.
package casestoretest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

// Run exercises a persistence.DocumentStore. Stores may be shared between
// runs, so every record uses fresh identifiers.
func Run(t *testing.T, makeStore func(t *testing.T) persistence.DocumentStore) {
	t.Helper()

	t.Run("cases", func(t *testing.T) { runCases(t, makeStore(t)) })
	t.Run("customers", func(t *testing.T) { runCustomers(t, makeStore(t)) })
	t.Run("profiles", func(t *testing.T) { runProfiles(t, makeStore(t)) })
}

func runCases(t *testing.T, s persistence.DocumentStore) {
	ctx := context.Background()
	customerID := "cust-" + uuid.NewString()
	created := time.Date(2024, time.January, 9, 8, 0, 0, 0, time.UTC)

	first, err := s.InsertCase(ctx, persistence.Case{
		CustomerID: customerID,
		Customer:   persistence.CustomerIdentity{Name: "Ada", Address: "1 Loop Rd", Phone: "5550102030"},
		Type:       "boiler-repair",
		Status:     persistence.CaseStatusPending,
		CreatedAt:  created,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.True(t, first.UpdatedAt.Equal(created))

	second, err := s.InsertCase(ctx, persistence.Case{
		ID:         "case-" + uuid.NewString(),
		CustomerID: customerID,
		Type:       "inspection",
		Status:     persistence.CaseStatusAssigned,
		CreatedAt:  created.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = s.InsertCase(ctx, persistence.Case{ID: second.ID, CustomerID: customerID, Status: persistence.CaseStatusPending})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	got, err := s.GetCase(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Customer.Name)
	assert.Equal(t, persistence.CaseStatusPending, got.Status)

	byCustomer, err := s.ListCasesByCustomer(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, first.ID, byCustomer[0].ID)
	assert.Equal(t, second.ID, byCustomer[1].ID)

	byIDs, err := s.ListCasesByIDs(ctx, []string{second.ID, "missing-" + uuid.NewString(), first.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, second.ID, byIDs[0].ID)
	assert.Equal(t, first.ID, byIDs[1].ID)

	empty, err := s.ListCasesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := s.ListCases(ctx)
	require.NoError(t, err)
	assert.True(t, containsCase(all, first.ID))
	assert.True(t, containsCase(all, second.ID))

	status := persistence.CaseStatusAssigned
	technician := "uid-" + uuid.NewString()
	updatedAt := created.Add(2 * time.Hour)
	updated, err := s.UpdateCase(ctx, first.ID, persistence.CaseUpdate{
		Status:       &status,
		TechnicianID: &technician,
		UpdatedAt:    updatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, persistence.CaseStatusAssigned, updated.Status)
	assert.Equal(t, technician, updated.TechnicianID)
	assert.Equal(t, "boiler-repair", updated.Type, "unset fields are preserved")
	assert.True(t, updated.UpdatedAt.Equal(updatedAt))

	reread, err := s.GetCase(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, technician, reread.TechnicianID)

	_, err = s.UpdateCase(ctx, "missing-"+uuid.NewString(), persistence.CaseUpdate{Status: &status})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, s.DeleteCase(ctx, first.ID))
	_, err = s.GetCase(ctx, first.ID)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCase(ctx, first.ID), persistence.ErrNotFound)
}

func runCustomers(t *testing.T, s persistence.DocumentStore) {
	ctx := context.Background()
	followUp := time.Date(2024, time.January, 12, 9, 0, 0, 0, time.UTC)

	customer, err := s.UpsertCustomer(ctx, persistence.Customer{
		Name:             "Grace",
		Phone:            "+1 (555) 010-2030",
		SchedulingIntent: true,
		UnreadCount:      2,
		FollowUpAt:       &followUp,
	})
	require.NoError(t, err)
	require.NotEmpty(t, customer.ID)

	got, err := s.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)
	assert.True(t, got.SchedulingIntent)
	assert.Equal(t, 2, got.UnreadCount)
	require.NotNil(t, got.FollowUpAt)
	assert.True(t, got.FollowUpAt.Equal(followUp))
	assert.Nil(t, got.LastContactAt)

	customer.UnreadCount = 0
	_, err = s.UpsertCustomer(ctx, customer)
	require.NoError(t, err)

	got, err = s.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCount)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	found := false
	for _, c := range all {
		found = found || c.ID == customer.ID
	}
	assert.True(t, found)

	_, err = s.GetCustomer(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func runProfiles(t *testing.T, s persistence.DocumentStore) {
	ctx := context.Background()
	identityID := "uid-" + uuid.NewString()

	require.NoError(t, s.UpsertTechnicianProfile(ctx, persistence.TechnicianProfile{
		IdentityID:  identityID,
		Email:       "tech@example.com",
		DisplayName: "Tech",
	}))
	require.NoError(t, s.UpsertTechnicianProfile(ctx, persistence.TechnicianProfile{
		IdentityID:  identityID,
		Email:       "tech.new@example.com",
		DisplayName: "Tech",
	}))

	got, err := s.GetTechnicianProfile(ctx, identityID)
	require.NoError(t, err)
	assert.Equal(t, "tech.new@example.com", got.Email)

	_, err = s.GetTechnicianProfile(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	assert.ErrorIs(t, s.UpsertTechnicianProfile(ctx, persistence.TechnicianProfile{Email: "x@example.com"}), persistence.ErrConstraintViolation)
}

func containsCase(cases []persistence.Case, id string) bool {
	for _, c := range cases {
		if c.ID == id {
			return true
		}
	}
	return false
}
