package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/application"
	"github.com/example/fieldservice-scheduler/internal/logging"
	"github.com/example/fieldservice-scheduler/internal/persistence"
	"github.com/example/fieldservice-scheduler/internal/testfixtures"
)

type profileStub struct {
	err error
}

func (p profileStub) GetTechnicianProfile(context.Context, string) (persistence.TechnicianProfile, error) {
	return persistence.TechnicianProfile{}, p.err
}

func TestResolveSchedulingIDMatchesByEmail(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)
	technician := stack.SeedTechnician(t, testfixtures.NewTechnician(testfixtures.WithTechnicianEmail("Ines@Example.com")))

	profile := testfixtures.Profile(technician)
	profile.IdentityID = "identity-store-7"
	profile.Email = "INES@example.com"
	require.NoError(t, stack.Documents.UpsertTechnicianProfile(ctx, profile))

	id, err := stack.Identity.ResolveSchedulingID(ctx, "identity-store-7")
	require.NoError(t, err)
	assert.Equal(t, technician.ID, id)
}

func TestResolveSchedulingIDErrors(t *testing.T) {
	ctx := context.Background()
	stack := testfixtures.NewStack(t)

	_, err := stack.Identity.ResolveSchedulingID(ctx, "  ")
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = stack.Identity.ResolveSchedulingID(ctx, "identity-unknown")
	assert.ErrorIs(t, err, application.ErrTechnicianNotSynchronized)

	bridge := application.NewIdentityBridge(profileStub{err: errors.New("connection reset")}, stack.Storage, logging.Discard())
	_, err = bridge.ResolveSchedulingID(ctx, "identity-1")
	var storeErr *application.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "GetTechnicianProfile", storeErr.Step)
}
