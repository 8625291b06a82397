package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/llm"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerator is a mock implementation of llm.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// onIntent matches calls whose single message was built for intent.
func (m *MockGenerator) onIntent(intent contract.Intent) *mock.Call {
	return m.On("Generate", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 1 && strings.HasPrefix(msgs[0].Content, "FUNCTION "+intent.String()+"(")
	}))
}

func (m *MockGenerator) intentCalls(intent contract.Intent) []string {
	var inputs []string
	for _, call := range m.Calls {
		msgs := call.Arguments.Get(1).([]llm.Message)
		if strings.HasPrefix(msgs[0].Content, "FUNCTION "+intent.String()+"(") {
			inputs = append(inputs, msgs[0].Content)
		}
	}
	return inputs
}

type eventLog struct {
	events []progress.Event
}

func (l *eventLog) callback() progress.Callback {
	return func(e progress.Event) { l.events = append(l.events, e) }
}

func (l *eventLog) count(kind progress.Kind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newRecord(t *testing.T, description string) *project.Record {
	t.Helper()
	rec, err := project.NewRecord(description)
	require.NoError(t, err)
	return rec
}

func TestMachine_Transitions(t *testing.T) {
	m := newMachine(architectTransitions)
	assert.Equal(t, StateDiscovery, m.current())

	err := m.transition(StateWorking)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateDiscovery, m.current())

	require.NoError(t, m.transition(StateValidating))
	require.NoError(t, m.transition(StateFinished))
	assert.True(t, m.current().IsTerminal())
	assert.Equal(t, []State{StateDiscovery, StateValidating, StateFinished}, m.visited())

	assert.ErrorIs(t, m.transition(StateDiscovery), ErrInvalidTransition)
}

func TestPhaseError(t *testing.T) {
	err := &PhaseError{Position: BackendPosition, State: StateValidating, Err: ErrRepairExhausted}

	assert.Equal(t, "Backend Developer failed in validating: bug-fix attempts exhausted", err.Error())
	assert.ErrorIs(t, err, ErrRepairExhausted)

	var pe *PhaseError
	require.True(t, errors.As(error(err), &pe))
	assert.Equal(t, StateValidating, pe.State)
}

func TestBase_FailDoesNotDoubleWrap(t *testing.T) {
	b := newBase(Attributes{Position: "p"}, architectTransitions, nil)
	inner := b.fail(errors.New("boom"))
	outer := b.fail(inner)
	assert.Same(t, inner, outer)
}
