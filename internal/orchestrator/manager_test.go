package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/agent"
	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/llm"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/fyrsmithlabs/autodev/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// MockGenerator is a mock implementation of llm.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) onIntent(intent contract.Intent) *mock.Call {
	return m.On("Generate", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 1 && strings.HasPrefix(msgs[0].Content, "FUNCTION "+intent.String()+"(")
	}))
}

// MockAgent is a mock implementation of agent.Agent.
type MockAgent struct {
	mock.Mock
	position string
	state    agent.State
}

func NewMockAgent(position string) *MockAgent {
	return &MockAgent{position: position, state: agent.StateDiscovery}
}

func (m *MockAgent) Attributes() agent.Attributes {
	return agent.Attributes{Position: m.position, Objective: "objective of " + m.position}
}

func (m *MockAgent) State() agent.State {
	return m.state
}

func (m *MockAgent) Execute(ctx context.Context, rec *project.Record) error {
	args := m.Called(ctx, rec)
	if args.Error(0) == nil {
		m.state = agent.StateFinished
	}
	return args.Error(0)
}

func goalCaller(t *testing.T, goal string) (*contract.Caller, *MockGenerator) {
	t.Helper()
	gen := new(MockGenerator)
	gen.onIntent(contract.IntentDefineGoal).Return(goal, nil).Once()
	return contract.NewCaller(gen), gen
}

func fixedAgents(agents ...agent.Agent) Factory {
	return func(Run) ([]agent.Agent, error) { return agents, nil }
}

func TestNew_DefinesGoalAndRecord(t *testing.T) {
	caller, gen := goalCaller(t, "  build a website that tracks todos  ")

	var seen Run
	m, err := New(context.Background(), caller, "I want a todo app", func(run Run) ([]agent.Agent, error) {
		seen = run
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "build a website that tracks todos", m.Record().Description())
	assert.NotEmpty(t, m.RunID())
	assert.Equal(t, m.RunID(), seen.ID)
	assert.Equal(t, "build a website that tracks todos", seen.Description)
	assert.Equal(t, ManagerPosition, m.Attributes().Position)
	gen.AssertExpectations(t)
}

func TestNew_Errors(t *testing.T) {
	t.Run("empty request", func(t *testing.T) {
		_, err := New(context.Background(), contract.NewCaller(new(MockGenerator)), "   ", fixedAgents())
		assert.ErrorIs(t, err, ErrEmptyRequest)
	})

	t.Run("goal call fails", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.onIntent(contract.IntentDefineGoal).Return("", errors.New("401 unauthorized"))

		_, err := New(context.Background(), contract.NewCaller(gen), "todo app", fixedAgents())
		assert.ErrorIs(t, err, contract.ErrFatalCall)
	})

	t.Run("blank goal", func(t *testing.T) {
		caller, _ := goalCaller(t, "   ")
		_, err := New(context.Background(), caller, "todo app", fixedAgents())
		assert.ErrorIs(t, err, project.ErrEmptyDescription)
	})

	t.Run("factory fails", func(t *testing.T) {
		caller, _ := goalCaller(t, "build a website")
		_, err := New(context.Background(), caller, "todo app", func(Run) ([]agent.Agent, error) {
			return nil, errors.New("no prober")
		})
		assert.ErrorContains(t, err, "building agents")
	})
}

func TestExecute_RunsAgentsInOrder(t *testing.T) {
	var order []string
	a := NewMockAgent("first")
	b := NewMockAgent("second")
	a.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) { order = append(order, "first") }).Return(nil)
	b.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) { order = append(order, "second") }).Return(nil)

	caller, _ := goalCaller(t, "build a website")
	var callbacks []AgentReport
	m, err := New(context.Background(), caller, "site", fixedAgents(a, b),
		WithRunID("run-1"),
		WithReportCallback(func(r AgentReport) { callbacks = append(callbacks, r) }),
	)
	require.NoError(t, err)

	reports, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, reports, 2)
	assert.Equal(t, "first", reports[0].Position)
	assert.Equal(t, agent.StateFinished, reports[0].State)
	assert.True(t, reports[1].Succeeded())
	assert.Equal(t, reports, callbacks)

	a.AssertCalled(t, "Execute", mock.Anything, m.Record())
}

func TestExecute_AbortsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := NewMockAgent("first")
	b := NewMockAgent("second")
	a.On("Execute", mock.Anything, mock.Anything).Return(boom)

	caller, _ := goalCaller(t, "build a website")
	m, err := New(context.Background(), caller, "site", fixedAgents(a, b))
	require.NoError(t, err)

	reports, err := m.Execute(context.Background())
	require.ErrorIs(t, err, boom)

	require.Len(t, reports, 1)
	assert.False(t, reports[0].Succeeded())
	assert.Equal(t, agent.StateDiscovery, reports[0].State)
	b.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecute_ContinueOnError(t *testing.T) {
	first := errors.New("first failure")
	second := errors.New("second failure")
	a := NewMockAgent("first")
	b := NewMockAgent("second")
	c := NewMockAgent("third")
	a.On("Execute", mock.Anything, mock.Anything).Return(first)
	b.On("Execute", mock.Anything, mock.Anything).Return(second)
	c.On("Execute", mock.Anything, mock.Anything).Return(nil)

	logger := logging.NewTestLogger()
	caller, _ := goalCaller(t, "build a website")
	m, err := New(context.Background(), caller, "site", fixedAgents(a, b, c),
		WithContinueOnError(true),
		WithLogger(logger.Logger),
	)
	require.NoError(t, err)

	reports, err := m.Execute(context.Background())
	require.ErrorIs(t, err, first)
	assert.NotErrorIs(t, err, second)
	assert.Len(t, reports, 3)
	assert.True(t, reports[2].Succeeded())

	logger.AssertLogged(t, zapcore.WarnLevel, "continuing with next agent")
}

func TestExecute_StopsWhenContextDone(t *testing.T) {
	a := NewMockAgent("first")
	b := NewMockAgent("second")

	ctx, cancel := context.WithCancel(context.Background())
	a.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(nil)

	caller, _ := goalCaller(t, "build a website")
	m, err := New(context.Background(), caller, "site", fixedAgents(a, b), WithContinueOnError(true))
	require.NoError(t, err)

	reports, err := m.Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reports, 1)
	b.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecute_TracesAgents(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	a := NewMockAgent("Solutions Architect")
	a.On("Execute", mock.Anything, mock.Anything).Return(nil)

	caller, _ := goalCaller(t, "build a website")
	m, err := New(context.Background(), caller, "site", fixedAgents(a),
		WithTracer(tt.Tracer("test")),
		WithRunID("run-42"),
	)
	require.NoError(t, err)

	_, err = m.Execute(context.Background())
	require.NoError(t, err)

	tt.AssertSpanExists(t, "agent.execute")
	tt.AssertSpanAttribute(t, "agent.execute", "agent.position", "Solutions Architect")
	tt.AssertSpanAttribute(t, "agent.execute", "run.id", "run-42")
	tt.AssertSpanAttribute(t, "agent.execute", "agent.state", "finished")
}

func TestAgentReport_MarshalJSON(t *testing.T) {
	r := AgentReport{
		Position:  "Backend Developer",
		Objective: "code",
		State:     agent.StateValidating,
		Err:       agent.ErrRepairExhausted,
		Duration:  1500 * time.Millisecond,
	}

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"position": "Backend Developer",
		"objective": "code",
		"state": "validating",
		"error": "bug-fix attempts exhausted",
		"duration_ms": 1500
	}`, string(b))
}
