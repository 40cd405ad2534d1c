package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig lists the handlers to mount. Nil handlers leave their
// routes unmounted.
type RouterConfig struct {
	Availability   *AvailabilityHandler
	Bookings       *BookingHandler
	Blocks         *BlockHandler
	Cases          *CaseHandler
	Reconciliation *ReconciliationHandler
	Metrics        http.Handler
	Health         map[string]HealthCheck
	PublicOrigins  []string
	Logger         *slog.Logger
}

// NewRouter builds the chi router with request ids, panic recovery and
// request logging on every route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(cfg.Health, newResponder(logger)))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/technicians/{id}", func(r chi.Router) {
		if cfg.Availability != nil {
			r.Get("/availability", cfg.Availability.Availability)
		}
		if cfg.Blocks != nil {
			r.Post("/blocks", cfg.Blocks.Create)
			r.Post("/recurring-blocks", cfg.Blocks.CreateRecurring)
		}
	})

	if cfg.Bookings != nil {
		r.Post("/bookings", cfg.Bookings.Create)
		r.Delete("/appointments/{id}", cfg.Bookings.DeleteAppointment)
		r.Patch("/appointments/{id}", cfg.Bookings.EnrichAppointment)
	}

	if cfg.Cases != nil {
		r.Route("/cases/{id}", func(r chi.Router) {
			r.Get("/", cfg.Cases.Get)
			r.Patch("/", cfg.Cases.Update)
			r.Post("/advance", cfg.Cases.Advance)
		})
	}

	if cfg.Reconciliation != nil {
		r.Get("/reconciliation", cfg.Reconciliation.Report)
	}

	r.Route("/public/services/{serviceID}", func(r chi.Router) {
		r.Use(PublicCORS(cfg.PublicOrigins))
		if cfg.Availability != nil {
			r.Get("/slots", cfg.Availability.Slots)
		}
		if cfg.Bookings != nil {
			r.Post("/bookings", cfg.Bookings.CreatePublic)
		}
	})

	return r
}

func healthHandler(checks map[string]HealthCheck, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		if status != http.StatusOK {
			responder.writeJSON(ctx, w, status, errorResponse{
				ErrorCode: codeServiceUnavailable,
				Message:   "a backing store is unreachable",
				Details:   toDetails(results),
			})
			return
		}
		responder.writeJSON(ctx, w, status, map[string]any{"status": "ok", "checks": results})
	}
}

func toDetails(values map[string]string) map[string]any {
	details := make(map[string]any, len(values))
	for k, v := range values {
		details[k] = v
	}
	return details
}
