package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters shared by all pipelines created with it.
type Metrics struct {
	// Sync passes that applied at least one edit.
	SyncPasses prometheus.Counter
	// Edits applied by sync passes.
	EditsApplied prometheus.Counter
	// Analyze passes that published a result.
	AnalyzePasses prometheus.Counter
	// Analysis results discarded because a newer snapshot was published
	// while they were computed.
	StaleAnalyses prometheus.Counter
	// Analyses that failed because the parser or linter panicked.
	FailedAnalyses prometheus.Counter
	AnalyzeSeconds prometheus.Histogram
}

// NewMetrics creates metrics registered with reg. If reg is nil, the metrics
// are not registered anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "mwls", Subsystem: "pipeline", Name: name, Help: help})
	}
	return &Metrics{
		SyncPasses:     counter("sync_passes_total", "Sync passes that applied edits."),
		EditsApplied:   counter("edits_applied_total", "Edits applied to document snapshots."),
		AnalyzePasses:  counter("analyze_passes_total", "Analyze passes that published a result."),
		StaleAnalyses:  counter("stale_analyses_total", "Analysis results discarded as stale."),
		FailedAnalyses: counter("failed_analyses_total", "Analyses that failed with a panic."),
		AnalyzeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mwls", Subsystem: "pipeline", Name: "analyze_seconds",
			Help:    "Time spent parsing and linting a snapshot.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}
