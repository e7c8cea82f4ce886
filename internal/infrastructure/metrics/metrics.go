// Package metrics provides Prometheus metrics for kyc-gate.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisionsTotal counts gate decisions by entry point and reason.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycgate",
			Name:      "gate_decisions_total",
			Help:      "Total number of KYC gate decisions",
		},
		[]string{"source", "reason", "allowed"},
	)

	// IdentityLookupsTotal counts identity lookups by result.
	IdentityLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycgate",
			Name:      "identity_lookups_total",
			Help:      "Total number of identity lookups by result",
		},
		[]string{"result"},
	)

	// IdentityFetchDuration measures identity endpoint round trips.
	IdentityFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kycgate",
			Name:      "identity_fetch_duration_seconds",
			Help:      "Duration of identity endpoint fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// InvalidationsTotal counts identity invalidations by origin.
	InvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycgate",
			Name:      "invalidations_total",
			Help:      "Total number of identity invalidations",
		},
		[]string{"origin"},
	)

	// EventSubscribers tracks open identity event streams.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kycgate",
			Name:      "event_subscribers",
			Help:      "Number of open identity event streams",
		},
	)
)

// Identity lookup results.
const (
	LookupCacheHit        = "cache_hit"
	LookupFetched         = "fetched"
	LookupNoCredential    = "no_credential"
	LookupUnauthenticated = "unauthenticated"
	LookupUnavailable     = "unavailable"
	LookupCancelled       = "cancelled"
)

// RecordDecision records a gate decision.
func RecordDecision(source, reason string, allowed bool) {
	GateDecisionsTotal.WithLabelValues(source, reason, strconv.FormatBool(allowed)).Inc()
}

// RecordLookup records an identity lookup result.
func RecordLookup(result string) {
	IdentityLookupsTotal.WithLabelValues(result).Inc()
}

// RecordFetch records an identity endpoint fetch duration.
func RecordFetch(seconds float64) {
	IdentityFetchDuration.Observe(seconds)
}

// RecordInvalidation records an invalidation. origin is "local" or "remote".
func RecordInvalidation(origin string) {
	InvalidationsTotal.WithLabelValues(origin).Inc()
}
