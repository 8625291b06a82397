package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/agent"
	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrEmptyRequest is returned by New when the user request is blank.
var ErrEmptyRequest = errors.New("request cannot be empty")

// Manager owns one run: the goal, the record and the ordered agents.
type Manager struct {
	attrs   agent.Attributes
	runID   string
	record  *project.Record
	agents  []agent.Agent
	reports []AgentReport

	continueOnError bool
	onReport        ReportCallback
	logger          *logging.Logger
	tracer          trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithTracer sets the tracer used for "agent.execute" spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithReportCallback sets the callback receiving each AgentReport.
func WithReportCallback(cb ReportCallback) Option {
	return func(m *Manager) { m.onReport = cb }
}

// WithContinueOnError keeps running later agents after one fails.
func WithContinueOnError(enabled bool) Option {
	return func(m *Manager) { m.continueOnError = enabled }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(m *Manager) { m.runID = id }
}

// New converts request into a project goal and prepares the run's agents.
func New(ctx context.Context, caller *contract.Caller, request string, factory Factory, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(request) == "" {
		return nil, ErrEmptyRequest
	}

	m := &Manager{attrs: agent.Attributes{Objective: managerObjective, Position: ManagerPosition}}
	for _, opt := range opts {
		opt(m)
	}
	if m.runID == "" {
		m.runID = uuid.NewString()
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("autodev/orchestrator")
	}

	ctx = logging.WithRunID(ctx, m.runID)
	ctx = logging.WithAgent(ctx, ManagerPosition)

	goal, err := caller.Invoke(ctx, contract.Request{
		Agent:  ManagerPosition,
		Intent: contract.IntentDefineGoal,
		Input:  request,
	})
	if err != nil {
		return nil, fmt.Errorf("defining project goal: %w", err)
	}

	record, err := project.NewRecord(goal)
	if err != nil {
		return nil, fmt.Errorf("defining project goal: %w", err)
	}
	m.record = record

	agents, err := factory(Run{ID: m.runID, Description: record.Description()})
	if err != nil {
		return nil, fmt.Errorf("building agents: %w", err)
	}
	m.agents = agents

	m.logger.Info(ctx, "run created",
		zap.String("goal", record.Description()),
		zap.Int("agents", len(agents)),
	)
	return m, nil
}

// RunID returns the run's identifier.
func (m *Manager) RunID() string {
	return m.runID
}

// Attributes returns the managing agent's attributes.
func (m *Manager) Attributes() agent.Attributes {
	return m.attrs
}

// Record returns the run's project record.
func (m *Manager) Record() *project.Record {
	return m.record
}

// Reports returns the reports of agents executed so far.
func (m *Manager) Reports() []AgentReport {
	return append([]AgentReport(nil), m.reports...)
}

// Execute runs every agent in order against the record and returns their
// reports along with the first error encountered.
func (m *Manager) Execute(ctx context.Context) ([]AgentReport, error) {
	ctx = logging.WithRunID(ctx, m.runID)

	var firstErr error
	for _, a := range m.agents {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		report := m.runAgent(ctx, a)
		m.reports = append(m.reports, report)
		if m.onReport != nil {
			m.onReport(report)
		}

		if report.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = report.Err
		}
		if !m.continueOnError {
			break
		}
		m.logger.Warn(ctx, "agent failed, continuing with next agent",
			zap.String("agent.position", report.Position),
			zap.Error(report.Err),
		)
	}

	outcome := "success"
	if firstErr != nil {
		outcome = "failure"
	}
	PipelineRunsTotal.WithLabelValues(outcome).Inc()

	return m.Reports(), firstErr
}

func (m *Manager) runAgent(ctx context.Context, a agent.Agent) AgentReport {
	attrs := a.Attributes()
	ctx = logging.WithAgent(ctx, attrs.Position)

	ctx, span := m.tracer.Start(ctx, "agent.execute",
		trace.WithAttributes(
			attribute.String("agent.position", attrs.Position),
			attribute.String("run.id", m.runID),
		),
	)
	defer span.End()

	m.logger.Info(ctx, "agent started", zap.String("objective", attrs.Objective))

	start := time.Now()
	err := a.Execute(ctx, m.record)
	elapsed := time.Since(start)

	report := AgentReport{
		Position:  attrs.Position,
		Objective: attrs.Objective,
		State:     a.State(),
		Err:       err,
		Duration:  elapsed,
	}

	AgentRunDuration.WithLabelValues(attrs.Position).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.String("agent.state", string(report.State)))

	if err != nil {
		AgentRunsTotal.WithLabelValues(attrs.Position, "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent failed")
		m.logger.Error(ctx, "agent failed", zap.Error(err), zap.Duration("duration", elapsed))
		return report
	}

	AgentRunsTotal.WithLabelValues(attrs.Position, "success").Inc()
	m.logger.Info(ctx, "agent finished", zap.Duration("duration", elapsed))
	return report
}
