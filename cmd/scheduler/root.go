package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/example/fieldservice-scheduler/internal/config"
	"github.com/example/fieldservice-scheduler/internal/logging"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	LogFormat string
}

var validLogFormats = []string{logging.FormatText, logging.FormatJSON}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Field service scheduling API",
		Long: `Books technician appointments against a calendar store and a case
store, keeps both consistent and reports where they disagree.

Configuration is read from FIELDSERVICE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validLogFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, validLogFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", logging.FormatJSON, "log output format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger every subcommand uses.
func setup(opts *rootOptions, w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(w, opts.LogFormat, level), nil
}
