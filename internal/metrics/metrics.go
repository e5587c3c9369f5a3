package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swellstrike_fetches_total",
			Help: "Total upstream fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swellstrike_fetch_latency_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swellstrike_refresh_cycles_total",
			Help: "Total refresh cycles by terminal state",
		},
		[]string{"state"},
	)

	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swellstrike_refresh_cycles_skipped_total",
			Help: "Refresh ticks skipped because the previous cycle was still running",
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swellstrike_refresh_cycle_duration_seconds",
			Help:    "Wall-clock duration of a full refresh cycle",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	LocationScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swellstrike_location_score",
			Help: "Most recent condition score per location",
		},
		[]string{"location", "domain"},
	)

	ActiveStrikes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swellstrike_active_strikes",
			Help: "Currently open strike events per domain",
		},
		[]string{"domain"},
	)

	StrikeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swellstrike_strike_transitions_total",
			Help: "Strike event transitions by domain and kind",
		},
		[]string{"domain", "transition"},
	)

	QualityFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swellstrike_quality_flags_total",
			Help: "Readings flagged by sanity checks, by flag",
		},
		[]string{"flag"},
	)
)
