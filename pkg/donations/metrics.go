package donations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nanas_donation_outcomes_total",
		Help: "Donation flow results by operation and result",
	}, []string{"op", "result"})

	recordedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nanas_donation_recorded_amount_total",
		Help: "Sum of recorded donation amounts in major currency units",
	})
)

func observe(op, result string) {
	outcomesTotal.WithLabelValues(op, result).Inc()
}
