package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_reservations_total",
		Help: "Total number of committed stock reservations",
	})

	reservationConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_reservation_conflicts_total",
		Help: "Reservations rejected because stock was insufficient",
	})

	cancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_cancellations_total",
		Help: "Total number of cancelled orders with stock restored",
	})

	reservationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_reservation_duration_seconds",
		Help:    "Duration of the reservation transaction",
		Buckets: prometheus.DefBuckets,
	})
)
