package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assistant metrics
var (
	// DispatchesTotal counts model calls by operation, hospital lookups and
	// formatting included.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmate",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Total number of model operations dispatched",
		},
		[]string{"operation"},
	)

	GatewayFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmate",
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Total model calls that failed or returned an unusable reply",
		},
		[]string{"operation"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "healthmate",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Model call latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"operation"},
	)

	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "healthmate",
			Subsystem: "escalation",
			Name:      "emergencies_total",
			Help:      "Total symptom analyses classified as Emergency",
		},
	)

	// HospitalLookupsTotal counts hospital lookups by outcome: found,
	// empty, no_location or format_error.
	HospitalLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmate",
			Subsystem: "hospitals",
			Name:      "lookups_total",
			Help:      "Total hospital lookups by outcome",
		},
		[]string{"outcome"},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "healthmate",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total conversation sessions created",
		},
	)
)
