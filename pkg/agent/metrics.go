package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fpgamon_cycle_duration_seconds",
			Help:    "Time taken by one collection cycle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	cycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpgamon_cycle_total",
			Help: "Total number of collection cycles",
		},
		[]string{"status"}, // success or error
	)

	seriesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpgamon_series",
			Help: "Number of series in the last completed snapshot",
		},
	)
)
