package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildChecksTotal counts build checks by result (clean, failed, error).
	BuildChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "agent",
			Name:      "build_checks_total",
			Help:      "Total number of build checks run by the backend developer",
		},
		[]string{"result"},
	)

	// URLsExcludedTotal counts external URLs removed by validation.
	URLsExcludedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "agent",
			Name:      "urls_excluded_total",
			Help:      "Total number of external URLs excluded as unreachable",
		},
	)
)
