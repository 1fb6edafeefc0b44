package intel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts completed recommendation calls.
	// Labels: quality (high, medium, low), outcome (recommended, abstained, unavailable)
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "decision_intel",
			Subsystem: "engine",
			Name:      "recommendations_total",
			Help:      "Total number of recommendation calls by quality tier and internal outcome",
		},
		[]string{"quality", "outcome"},
	)

	// SourceFailuresTotal counts degraded sources.
	// Labels: source (history, external), status (unavailable, cancelled)
	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "decision_intel",
			Subsystem: "engine",
			Name:      "source_failures_total",
			Help:      "Total number of recommendation sources that degraded",
		},
		[]string{"source", "status"},
	)

	// SkippedRecordsTotal counts malformed historical records left out of scoring.
	SkippedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "decision_intel",
			Subsystem: "engine",
			Name:      "skipped_records_total",
			Help:      "Total number of malformed historical decisions skipped",
		},
	)

	// RecommendDuration tracks end-to-end recommendation latency.
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "decision_intel",
			Subsystem: "engine",
			Name:      "recommend_duration_seconds",
			Help:      "Duration of recommendation calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
