// Package metrics holds the prometheus collectors of the scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldservice"

// Saga outcomes.
const (
	OutcomeBooked      = "booked"
	OutcomeConflict    = "conflict"
	OutcomeFailed      = "failed"
	OutcomeCompensated = "compensated"
	OutcomeIncident    = "integrity_incident"
)

var (
	bookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking attempts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	sagaStepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_step_failures_total",
			Help:      "Saga steps that failed, by step name.",
		},
		[]string{"step"},
	)

	blocksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_created_total",
			Help:      "Blocking calendar rows written, by source.",
		},
		[]string{"source"},
	)

	reconcileViews = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_views",
			Help:      "Customers per classification in the last reconciliation pass.",
		},
		[]string{"classification"},
	)

	reconcileDangling = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_dangling_references",
			Help:      "Appointments referencing a case that no longer exists in the last pass.",
		},
	)

	reconcileMalformed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_malformed_references",
			Help:      "Appointments with undecodable references in the last pass.",
		},
	)
)

// RecordBooking counts one booking attempt.
func RecordBooking(channel, outcome string) {
	bookingsTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordSagaStepFailure counts a failed saga step.
func RecordSagaStepFailure(step string) {
	sagaStepFailuresTotal.WithLabelValues(step).Inc()
}

// RecordBlocks counts blocking rows written.
func RecordBlocks(source string, n int) {
	if n <= 0 {
		return
	}
	blocksCreatedTotal.WithLabelValues(source).Add(float64(n))
}

// RecordReconciliation replaces the gauges with the result of a pass.
// An empty classification is reported as "none".
func RecordReconciliation(counts map[string]int, dangling, malformed int) {
	reconcileViews.Reset()
	for classification, n := range counts {
		if classification == "" {
			classification = "none"
		}
		reconcileViews.WithLabelValues(classification).Set(float64(n))
	}
	reconcileDangling.Set(float64(dangling))
	reconcileMalformed.Set(float64(malformed))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
