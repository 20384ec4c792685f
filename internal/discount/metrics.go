package discount

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sweepsTotal counts completed reconciliation sweeps, including degraded
	// no-op runs.
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_sweeps_total",
		Help: "Total number of discount reconciliation sweeps",
	})

	// productsUpdated counts products whose advertised price was rewritten.
	productsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_products_updated_total",
		Help: "Total number of product discount updates written by sweeps",
	})

	// writeFailures counts per-product write failures. Failures never abort
	// the sweep, so this is the only place they surface besides the log.
	writeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_write_failures_total",
		Help: "Total number of failed per-product discount writes",
	})

	// sweepDuration tracks how long a full-catalog sweep takes.
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discount_sweep_duration_seconds",
		Help:    "Duration of discount reconciliation sweeps",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
)
