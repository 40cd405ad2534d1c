package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/fieldservice-scheduler/internal/reconcile"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type reconcileOptions struct {
	*rootOptions
	Format string
}

func newReconcileCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &reconcileOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report disagreements between customer intent and the calendar",
		Long: `Runs one reconciliation pass over the case store and the scheduling
store and prints the result. Nothing is written to either store.

Examples:
  scheduler reconcile
  scheduler reconcile --format json`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != outputText && opts.Format != outputJSON {
				return fmt.Errorf("invalid format %q: must be one of [%s %s]", opts.Format, outputText, outputJSON)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts.rootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := buildServices(cfg, st, logger).reconciliation.Run(ctx)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, opts.Format)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", outputText, "output format (json|text)")

	return cmd
}

func writeReport(w io.Writer, report reconcile.Report, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "generated at %s\n\n", report.GeneratedAt.UTC().Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tCLASSIFICATION\tPRIORITY\tMATCH\tAPPOINTMENT\tREASON")
	for _, v := range report.Views {
		appointment := "-"
		if v.Appointment != nil {
			appointment = fmt.Sprintf("#%d %s", v.Appointment.ID, v.Appointment.Start.UTC().Format(time.RFC3339))
		}
		classification := string(v.Classification)
		if classification == "" {
			classification = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			v.CustomerID, classification, v.Priority.Weight, v.Match, appointment, v.Priority.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Dangling) > 0 {
		fmt.Fprintln(w, "\ndangling references:")
		for _, d := range report.Dangling {
			fmt.Fprintf(w, "  appointment #%d (technician %d) -> missing case %s\n", d.AppointmentID, d.TechnicianID, d.CaseID)
		}
	}
	if len(report.Malformed) > 0 {
		fmt.Fprintln(w, "\nmalformed references:")
		for _, m := range report.Malformed {
			fmt.Fprintf(w, "  appointment #%d: %s\n", m.AppointmentID, m.Error)
		}
	}
	return nil
}
