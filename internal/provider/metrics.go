package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts provider attempts.
	// Labels: provider (openai, gemini), result (success, empty, timeout, error)
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Total number of provider attempts by result",
		},
		[]string{"provider", "result"},
	)

	// AttemptDuration tracks how long each provider attempt takes.
	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvis",
			Subsystem: "provider",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of provider attempts in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"provider"},
	)

	// UnavailableTotal counts classifications that exhausted every provider.
	UnavailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "provider",
			Name:      "unavailable_total",
			Help:      "Total number of classifications where no provider produced text",
		},
	)
)
