package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/testfixtures"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUpdateCaseAssignmentForcesAssigned(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	seeded, err := stack.Documents.InsertCase(ctx, testfixtures.NewCase())
	require.NoError(t, err)

	updated, err := stack.Cases.UpdateCase(ctx, seeded.ID, application.CaseUpdateRequest{
		Status:       ptr(persistence.CaseStatusCompleted),
		TechnicianID: ptr("identity-042"),
	})
	require.NoError(t, err)
	assert.Equal(t, persistence.CaseStatusAssigned, updated.Status)
	assert.Equal(t, "identity-042", updated.TechnicianID)
	assert.True(t, updated.UpdatedAt.Equal(testfixtures.ReferenceTime()))
}

func TestUpdateCaseSetsStatusDirectly(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	seeded, err := stack.Documents.InsertCase(ctx, testfixtures.NewCase(testfixtures.WithStatus(persistence.CaseStatusAssigned)))
	require.NoError(t, err)

	updated, err := stack.Cases.UpdateCase(ctx, seeded.ID, application.CaseUpdateRequest{
		Status: ptr(persistence.CaseStatusPending),
		Type:   ptr("inspection"),
	})
	require.NoError(t, err)
	assert.Equal(t, persistence.CaseStatusPending, updated.Status)
	assert.Equal(t, "inspection", updated.Type)
	assert.Equal(t, seeded.Customer, updated.Customer)
}

func TestUpdateCaseErrors(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)

	_, err := stack.Cases.UpdateCase(ctx, "case-x", application.CaseUpdateRequest{
		Status: ptr(persistence.CaseStatus("archived")),
		Type:   ptr(" "),
	})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "status")
	assert.Contains(t, vErr.FieldErrors, "type")

	_, err = stack.Cases.UpdateCase(ctx, "case-x", application.CaseUpdateRequest{Type: ptr("repair")})
	assert.ErrorIs(t, err, application.ErrNotFound)
	assert.Equal(t, "not_found", application.ErrorKind(err))
}

func TestAdvanceStatusOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	seeded, err := stack.Documents.InsertCase(ctx, testfixtures.NewCase())
	require.NoError(t, err)

	advanced, err := stack.Cases.AdvanceStatus(ctx, seeded.ID, persistence.CaseStatusAssigned)
	require.NoError(t, err)
	assert.Equal(t, persistence.CaseStatusAssigned, advanced.Status)

	for _, status := range []persistence.CaseStatus{persistence.CaseStatusPending, persistence.CaseStatusAssigned} {
		_, err = stack.Cases.AdvanceStatus(ctx, seeded.ID, status)
		assert.ErrorIs(t, err, application.ErrInvalidTransition, "to %s", status)
	}

	advanced, err = stack.Cases.AdvanceStatus(ctx, seeded.ID, persistence.CaseStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, persistence.CaseStatusCompleted, advanced.Status)

	_, err = stack.Cases.AdvanceStatus(ctx, "case-missing", persistence.CaseStatusCompleted)
	assert.ErrorIs(t, err, application.ErrNotFound)
}
