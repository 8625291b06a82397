package contract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts generation calls by intent and outcome.
	// Labels: intent, outcome (success, retried_success, fatal)
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Total number of generation call contract invocations",
		},
		[]string{"intent", "outcome"},
	)

	// RetriesTotal counts the single retry issued after a failed first attempt.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "contract",
			Name:      "retries_total",
			Help:      "Total number of generation retries",
		},
		[]string{"intent"},
	)

	// DecodeFailuresTotal counts responses that could not be decoded as JSON.
	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "contract",
			Name:      "decode_failures_total",
			Help:      "Total number of generation responses that failed JSON decoding",
		},
		[]string{"intent"},
	)

	// CallDuration tracks end-to-end invocation time including the retry.
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autodev",
			Subsystem: "contract",
			Name:      "call_duration_seconds",
			Help:      "Duration of generation call contract invocations in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"intent"},
	)
)
