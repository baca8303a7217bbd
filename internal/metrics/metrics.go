package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "demand_signal"

const (
	// OutcomeSuccess labels forecasts that produced a table.
	OutcomeSuccess = "success"
	// OutcomeRejected labels forecasts refused by input validation.
	OutcomeRejected = "rejected"
	// OutcomeError labels oracle or loader failures.
	OutcomeError = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Per-category forecasts handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	forecastDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_seconds",
			Help:      "Per-category forecast latency in seconds, oracle included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Adequacy classifications, partitioned by label.",
		},
		[]string{"label"},
	)

	sourceLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_loads_total",
			Help:      "Event table lookups, partitioned by origin and cache result.",
		},
		[]string{"origin", "cache"},
	)
)

// Register attaches demand-signal collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		forecastsTotal,
		forecastDurationSeconds,
		classificationsTotal,
		sourceLoadsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveForecast records a per-category forecast duration and outcome.
func ObserveForecast(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeRejected:
	default:
		outcome = OutcomeError
	}
	forecastsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	forecastDurationSeconds.Observe(duration.Seconds())
}

// ObserveClassification counts an adequacy label.
func ObserveClassification(label string) {
	classificationsTotal.WithLabelValues(label).Inc()
}

// ObserveSourceLoad counts an event table lookup.
func ObserveSourceLoad(origin string, hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	sourceLoadsTotal.WithLabelValues(origin, result).Inc()
}
