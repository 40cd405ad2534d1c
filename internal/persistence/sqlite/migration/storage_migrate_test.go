package migration_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fieldservice-scheduler/internal/logging"
	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite"
)

func TestStorageMigrate_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	storage, err := sqlite.Open(filepath.Join(t.TempDir(), "fresh.db"), sqlite.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(ctx))
	require.NoError(t, storage.Migrate(ctx))

	status, err := storage.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Empty(t, status.Pending)
	assert.Len(t, status.Applied, 2)
}
