package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	Simulations         *prometheus.CounterVec
	SimulationDuration  prometheus.Histogram
	VolatilityEstimates *prometheus.CounterVec
	FeedTicks           *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Simulations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "simulations_total",
			Help:      "Monte Carlo simulation requests by outcome.",
		}, []string{"outcome"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "praxis",
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of successful simulation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		VolatilityEstimates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "volatility_estimates_total",
			Help:      "Historical volatility estimates by source and outcome.",
		}, []string{"source", "outcome"}),
		FeedTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "feed_ticks_total",
			Help:      "Price ticks recorded from exchange feeds.",
		}, []string{"exchange"}),
	}
}
