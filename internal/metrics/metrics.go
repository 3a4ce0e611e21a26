// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package metrics exposes solve-progress instrumentation via
// prometheus/client_golang, the ambient observability stack carried over
// regardless of spec.md's distributed-coordination Non-goal (logging and
// metrics are ambient concerns, not the excluded feature itself).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the gauges and counters a solve run updates.
type Registry struct {
	TiersSolved      prometheus.Counter
	TiersCorrupted   prometheus.Counter
	PositionsSolved  prometheus.Counter
	FrontierSize     *prometheus.GaugeVec // labeled by value and remoteness bucket
	CurrentTier      prometheus.Gauge
	SolveDuration    prometheus.Histogram
}

// NewRegistry constructs and registers a fresh metric set against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the global default
// registry; pass prometheus.DefaultRegisterer in production.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TiersSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesman",
			Name:      "tiers_solved_total",
			Help:      "Number of tiers successfully solved and flushed.",
		}),
		TiersCorrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesman",
			Name:      "tiers_corrupted_total",
			Help:      "Number of tiers whose flush reported a database I/O error.",
		}),
		PositionsSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesman",
			Name:      "positions_solved_total",
			Help:      "Number of positions assigned a final value across all tiers.",
		}),
		FrontierSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gamesman",
			Name:      "frontier_bucket_size",
			Help:      "Number of positions currently queued at a given remoteness.",
		}, []string{"value", "remoteness"}),
		CurrentTier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamesman",
			Name:      "current_tier",
			Help:      "Tier id currently being solved, -1 if idle.",
		}),
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gamesman",
			Name:      "tier_solve_duration_seconds",
			Help:      "Wall-clock time to solve a single tier.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.TiersSolved, r.TiersCorrupted, r.PositionsSolved,
		r.FrontierSize, r.CurrentTier, r.SolveDuration)
	return r
}
