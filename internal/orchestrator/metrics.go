package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AgentRunsTotal counts agent executions by position and outcome.
	AgentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "orchestrator",
			Name:      "agent_runs_total",
			Help:      "Total number of agent executions",
		},
		[]string{"position", "outcome"},
	)

	// AgentRunDuration tracks agent execution time.
	AgentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autodev",
			Subsystem: "orchestrator",
			Name:      "agent_run_duration_seconds",
			Help:      "Duration of agent executions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"position"},
	)

	// PipelineRunsTotal counts pipeline runs by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodev",
			Subsystem: "orchestrator",
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)
)
