// Package metrics exposes prometheus instrumentation for the scoring
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	MatchesProcessed     *prometheus.CounterVec
	MatchesSkipped       *prometheus.CounterVec
	PerformancesApplied  *prometheus.CounterVec
	DuplicatesIgnored    *prometheus.CounterVec
	AmbiguousResolutions *prometheus.CounterVec
	NewPlayers           *prometheus.CounterVec
	MultiplierChanges    *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	LastRunTimestamp     prometheus.Gauge
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MatchesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "matches_processed_total",
			Help:      "Matches fully extracted, scored and recorded.",
		}, []string{"club"}),
		MatchesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "matches_skipped_total",
			Help:      "Matches skipped because the scorecard could not be processed.",
		}, []string{"club"}),
		PerformancesApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "performances_applied_total",
			Help:      "Player performances scored and added to season totals.",
		}, []string{"club"}),
		DuplicatesIgnored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "duplicate_performances_total",
			Help:      "Replayed (match, player) pairs ignored by the aggregator.",
		}, []string{"club"}),
		AmbiguousResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "ambiguous_resolutions_total",
			Help:      "Fuzzy name matches that had more than one candidate.",
		}, []string{"club"}),
		NewPlayers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "new_players_total",
			Help:      "Identities created for previously unseen names.",
		}, []string{"club"}),
		MultiplierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricket_fantasy",
			Name:      "multiplier_changes_total",
			Help:      "Player multipliers updated by a handicap pass.",
		}, []string{"club"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cricket_fantasy",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of a full pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cricket_fantasy",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed pipeline run.",
		}),
	}
}
