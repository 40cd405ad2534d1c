package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/reconcile"
	"github.com/example/fieldservice-scheduler/internal/testfixtures"
)

func TestReconciliationRun(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedSynchronized(t, testfixtures.NewTechnician())

	booked := testfixtures.NewCustomer(testfixtures.WithSchedulingIntent())
	ghost := testfixtures.NewCustomer(testfixtures.WithSchedulingIntent())
	walkIn := testfixtures.NewCustomer(testfixtures.WithPhone("+1 (555) 777-0101"))
	for _, customer := range []persistence.Customer{booked, ghost, walkIn} {
		_, err := stack.Documents.UpsertCustomer(ctx, customer)
		require.NoError(t, err)
	}

	req := bookingRequest(technician.IdentityID, testfixtures.At(13, 0))
	req.CustomerID = booked.ID
	result, err := stack.Booking.Book(ctx, req)
	require.NoError(t, err)

	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(15, 0), testfixtures.WithCustomerPhone("5557770101")))
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(16, 0), testfixtures.WithNotes(`{"case_id":"case-deleted"}`)))
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(17, 0), testfixtures.WithNotes(`{"case_id":`)))
	// Older than the lookback.
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(9, 0).Add(-10*24*time.Hour), testfixtures.WithNotes(`{broken`)))

	report, err := stack.Reconciliation.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Views, 3)

	views := make(map[string]reconcile.View, len(report.Views))
	for _, view := range report.Views {
		views[view.CustomerID] = view
	}

	assert.Equal(t, reconcile.ClassificationOK, views[booked.ID].Classification)
	assert.Equal(t, reconcile.MatchStructured, views[booked.ID].Match)
	require.NotNil(t, views[booked.ID].Appointment)
	assert.Equal(t, result.Appointment.ID, views[booked.ID].Appointment.ID)
	assert.Len(t, views[booked.ID].Cases, 1)

	assert.Equal(t, reconcile.ClassificationErrorGhost, views[ghost.ID].Classification)
	assert.Equal(t, reconcile.ClassificationManual, views[walkIn.ID].Classification)
	assert.Equal(t, reconcile.MatchPhone, views[walkIn.ID].Match)

	assert.Equal(t, ghost.ID, report.Views[0].CustomerID, "ghosts outrank reminders")

	require.Len(t, report.Dangling, 1)
	assert.Equal(t, "case-deleted", report.Dangling[0].CaseID)
	assert.Len(t, report.Malformed, 1)
	assert.True(t, report.GeneratedAt.Equal(testfixtures.ReferenceTime()))
}

func TestReconciliationMatchesBookingsBeyondTomorrow(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedSynchronized(t, testfixtures.NewTechnician())

	customer := testfixtures.NewCustomer(testfixtures.WithSchedulingIntent())
	_, err := stack.Documents.UpsertCustomer(ctx, customer)
	require.NoError(t, err)

	req := bookingRequest(technician.IdentityID, testfixtures.At(13, 0).AddDate(0, 0, 3))
	req.CustomerID = customer.ID
	booked, err := stack.Booking.Book(ctx, req)
	require.NoError(t, err)

	farOut := testfixtures.At(10, 0).AddDate(0, 2, 0)
	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, farOut, testfixtures.WithNotes(`{"case_id":"case-gone"}`)))

	report, err := stack.Reconciliation.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Views, 1)

	view := report.Views[0]
	assert.Equal(t, reconcile.ClassificationOK, view.Classification)
	assert.Equal(t, reconcile.MatchStructured, view.Match)
	require.NotNil(t, view.Appointment)
	assert.Equal(t, booked.Appointment.ID, view.Appointment.ID)

	require.Len(t, report.Dangling, 1)
	assert.Equal(t, "case-gone", report.Dangling[0].CaseID)
}

func TestReconciliationLookbackFollowsTheClock(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedSynchronized(t, testfixtures.NewTechnician())

	stack.SeedAppointment(t, testfixtures.NewAppointment(technician.ID, testfixtures.At(10, 0).AddDate(0, 0, -5), testfixtures.WithNotes(`{broken`)))

	report, err := stack.Reconciliation.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Malformed, 1)

	stack.Factory.Clock.Advance(3 * 24 * time.Hour)
	stack.Factory.Clock.SetAt(12, 0)

	report, err = stack.Reconciliation.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Malformed, "row aged out of the lookback")
	assert.True(t, report.GeneratedAt.Equal(testfixtures.At(12, 0).AddDate(0, 0, 3)))
}
