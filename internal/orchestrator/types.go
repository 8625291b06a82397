package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/agent"
)

const (
	// ManagerPosition is how the managing agent appears in messages.
	ManagerPosition  = "Project Manager"
	managerObjective = "Manage agents who are building an excellent website for the user"
)

// Run identifies one pipeline run.
type Run struct {
	ID          string
	Description string
}

// Factory builds the ordered agents for a run. Agents are stateful, so a
// Factory must return fresh instances on every call.
type Factory func(run Run) ([]agent.Agent, error)

// AgentReport summarizes one agent's execution.
type AgentReport struct {
	Position  string        `json:"position"`
	Objective string        `json:"objective"`
	State     agent.State   `json:"state"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"-"`
}

// Succeeded reports whether the agent finished without error.
func (r AgentReport) Succeeded() bool {
	return r.Err == nil && r.State.IsTerminal()
}

// MarshalJSON renders the error as a string and the duration in milliseconds.
func (r AgentReport) MarshalJSON() ([]byte, error) {
	type alias AgentReport
	out := struct {
		alias
		Error      string `json:"error,omitempty"`
		DurationMS int64  `json:"duration_ms"`
	}{
		alias:      alias(r),
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// ReportCallback receives an AgentReport after each agent runs.
type ReportCallback func(AgentReport)
