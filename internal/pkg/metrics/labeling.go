package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Selection tiers reported by RecordSelection
const (
	TierPending = "pending"
	TierFresh   = "fresh"
	TierNone    = "none"
)

var (
	itemSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelflow_item_selections_total",
			Help: "Next-item selections by tier",
		},
		[]string{"tier"},
	)

	claimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labelflow_claim_conflicts_total",
			Help: "Claims lost to a concurrent caller",
		},
	)

	tagSetRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labelflow_tagset_write_retries_total",
			Help: "Tag-set writes retried after a version conflict",
		},
	)

	annotationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelflow_annotations_submitted_total",
			Help: "Annotation submissions by outcome",
		},
		[]string{"outcome"},
	)

	suggestionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelflow_suggestions_total",
			Help: "Machine suggestions by outcome",
		},
		[]string{"outcome"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelflow_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// RecordSelection counts a next-item selection served from the given tier
func RecordSelection(tier string) {
	itemSelections.WithLabelValues(tier).Inc()
}

// RecordClaimConflict counts a claim lost to another caller
func RecordClaimConflict() {
	claimConflicts.Inc()
}

// RecordTagSetRetry counts an optimistic tag-set write that had to be retried
func RecordTagSetRetry() {
	tagSetRetries.Inc()
}

// RecordAnnotation counts an annotation submission outcome
func RecordAnnotation(outcome string) {
	annotationsSubmitted.WithLabelValues(outcome).Inc()
}

// RecordSuggestion counts a machine suggestion outcome
func RecordSuggestion(outcome string) {
	suggestionsApplied.WithLabelValues(outcome).Inc()
}

// SetBreakerState publishes a circuit breaker state
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
