package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

func TestTechnicianRepository_UpsertByEmail(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})

	created, err := storage.UpsertTechnician(ctx, persistence.Technician{
		Email:       " Alice@Example.com ",
		DisplayName: "Alice",
		Active:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Empty(t, created.IdentityID)

	updated, err := storage.UpsertTechnician(ctx, persistence.Technician{
		Email:       "alice@example.com",
		IdentityID:  "uid-alice",
		DisplayName: "Alice A.",
		Active:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "uid-alice", updated.IdentityID)
	assert.Equal(t, "Alice A.", updated.DisplayName)

	byEmail, err := storage.GetTechnicianByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byIdentity, err := storage.GetTechnicianByIdentity(ctx, "uid-alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byIdentity.ID)

	_, err = storage.GetTechnicianByIdentity(ctx, "")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = storage.GetTechnician(ctx, created.ID+10)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = storage.UpsertTechnician(ctx, persistence.Technician{Email: "  "})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestTechnicianRepository_ProviderPool(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t, Options{})

	first := seedTechnician(t, storage, "a@example.com")
	second := seedTechnician(t, storage, "b@example.com")
	inactive, err := storage.UpsertTechnician(ctx, persistence.Technician{Email: "c@example.com", Active: false})
	require.NoError(t, err)

	for _, id := range []int64{second.ID, first.ID, inactive.ID, first.ID} {
		require.NoError(t, storage.AddProvider(ctx, "boiler-service", id))
	}

	pool, err := storage.ProviderPool(ctx, "boiler-service")
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, pool)

	empty, err := storage.ProviderPool(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, storage.AddProvider(ctx, "boiler-service", 9999), persistence.ErrConstraintViolation)
	assert.ErrorIs(t, storage.AddProvider(ctx, "", first.ID), persistence.ErrConstraintViolation)
}
