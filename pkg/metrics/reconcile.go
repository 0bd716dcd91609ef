package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records payment-event reconciliation outcomes.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
	repairs  *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided
// registerer. A nil registerer yields a no-op recorder for tests.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_event_duration_seconds",
		Help:    "Duration of payment event reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_events_total",
		Help: "Payment events processed, labelled by outcome.",
	}, []string{"gateway", "outcome"})
	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_repairs_total",
		Help: "Audit sweep repairs applied to uncredited paid orders.",
	}, []string{"result"})
	reg.MustRegister(duration, events, repairs)
	return &ReconcileMetrics{
		duration: duration,
		events:   events,
		repairs:  repairs,
	}
}

// ObserveDuration records the time spent handling a payment event.
func (m *ReconcileMetrics) ObserveDuration(gateway string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}

// IncEvent increments the event counter for the given reconciliation outcome.
func (m *ReconcileMetrics) IncEvent(gateway, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncRepair increments the repair counter with the given result.
func (m *ReconcileMetrics) IncRepair(result string) {
	if m == nil || m.repairs == nil {
		return
	}
	m.repairs.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
