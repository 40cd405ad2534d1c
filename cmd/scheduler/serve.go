package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/example/fieldservice-scheduler/internal/http"
	"github.com/example/fieldservice-scheduler/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Opens and migrates the scheduling store, opens the case store and
serves the staff and public API until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, cmd)
		},
	}
}

func runServe(ctx context.Context, rootOpts *rootOptions, cmd *cobra.Command) error {
	cfg, logger, err := setup(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close stores", "error", cerr)
		}
	}()

	svc := buildServices(cfg, st, logger)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Availability:   httptransport.NewAvailabilityHandler(svc.availability, slotDefaults(cfg), logger),
		Bookings:       httptransport.NewBookingHandler(svc.booking, logger),
		Blocks:         httptransport.NewBlockHandler(svc.blocks, logger),
		Cases:          httptransport.NewCaseHandler(svc.cases, logger),
		Reconciliation: httptransport.NewReconciliationHandler(svc.reconciliation, logger),
		Metrics:        metrics.Handler(),
		Health:         st.health,
		PublicOrigins:  cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening",
		"addr", server.Addr,
		"timezone", cfg.Location.String(),
		"travel_buffer", cfg.TravelBuffer.String(),
		"slot_duration", cfg.SlotDuration.String(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("scheduler API stopped")
	return nil
}
