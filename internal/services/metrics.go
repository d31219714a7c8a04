package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments recurring materialization.
type Metrics struct {
	Runs           prometheus.Counter
	Emitted        prometheus.Counter
	StaleCursors   prometheus.Counter
	Failures       prometheus.Counter
	TemplateRunDur prometheus.Histogram
}

// NewMetrics registers the materializer collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pairledger",
			Subsystem: "recurring",
			Name:      "runs_total",
			Help:      "Materialization passes over all active templates.",
		}),
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pairledger",
			Subsystem: "recurring",
			Name:      "expenses_materialized_total",
			Help:      "Expenses inserted from recurring templates.",
		}),
		StaleCursors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pairledger",
			Subsystem: "recurring",
			Name:      "stale_cursor_total",
			Help:      "Cursor advances lost to a concurrent run.",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pairledger",
			Subsystem: "recurring",
			Name:      "template_failures_total",
			Help:      "Templates whose materialization failed.",
		}),
		TemplateRunDur: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pairledger",
			Subsystem: "recurring",
			Name:      "template_duration_seconds",
			Help:      "Time spent materializing one template.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
