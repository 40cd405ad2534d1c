package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite"
	"github.com/example/fieldservice-scheduler/internal/persistence/sqlite/migration"
)

func newMigrateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending scheduling store migrations",
		Long: `Applies every pending migration to the scheduling store named by
FIELDSERVICE_SQLITE_DSN and prints the resulting schema status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			storage, err := sqlite.Open(cfg.SQLiteDSN, sqlite.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("open scheduling store: %w", err)
			}
			defer storage.Close()

			ctx := cmd.Context()
			if err := storage.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate scheduling store: %w", err)
			}
			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return fmt.Errorf("read migration status: %w", err)
			}
			return writeMigrationStatus(cmd.OutOrStdout(), status)
		},
	}
}

func writeMigrationStatus(w io.Writer, status migration.Status) error {
	version := status.CurrentVersion
	if version == "" {
		version = "none"
	}
	if _, err := fmt.Fprintf(w, "schema version: %s\n", version); err != nil {
		return err
	}
	for _, applied := range status.Applied {
		if _, err := fmt.Fprintf(w, "  applied %s at %s\n", applied.Version, applied.AppliedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	for _, pending := range status.Pending {
		if _, err := fmt.Fprintf(w, "  pending %s %s\n", pending.Version, pending.Description); err != nil {
			return err
		}
	}
	return nil
}
