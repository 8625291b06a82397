package http

import (
	"github.com/fyrsmithlabs/autodev/internal/orchestrator"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/fyrsmithlabs/autodev/internal/telemetry"
)

// Run statuses reported in RunResponse.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRequest is the request body for POST /api/v1/runs.
type RunRequest struct {
	Request string `json:"request"`
}

// RunResponse is the response body for POST /api/v1/runs.
type RunResponse struct {
	RunID   string                     `json:"run_id"`
	Status  string                     `json:"status"`
	Goal    string                     `json:"goal"`
	Error   string                     `json:"error,omitempty"`
	Record  project.Snapshot           `json:"record"`
	Reports []orchestrator.AgentReport `json:"reports"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version,omitempty"`
	ActiveRuns int64                   `json:"active_runs"`
	Telemetry  *telemetry.HealthStatus `json:"telemetry,omitempty"`
}
