// Package agent implements the pipeline agents. Each agent owns a small state
// machine and advances it against the shared project record until it reaches
// StateFinished or fails.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"go.uber.org/zap"
)

var (
	// ErrInvalidTransition is returned when an agent attempts a transition
	// its state table does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRepairExhausted is returned when the bug-fix loop exceeds its bound.
	ErrRepairExhausted = errors.New("bug-fix attempts exhausted")
)

// Attributes identify an agent in messages and reports.
type Attributes struct {
	Objective string `json:"objective"`
	Position  string `json:"position"`
}

// Agent is one pipeline phase.
type Agent interface {
	Attributes() Attributes
	State() State
	Execute(ctx context.Context, rec *project.Record) error
}

// PhaseError reports the agent and state in which a phase failed.
type PhaseError struct {
	Position string
	State    State
	Err      error
}

// Error implements the error interface
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed in %s: %s", e.Position, e.State, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to reach the underlying error
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Option configures an agent.
type Option func(*base)

// WithLogger sets the agent's logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithProgress sets the callback receiving the agent's unit-test and issue messages.
func WithProgress(cb progress.Callback) Option {
	return func(b *base) { b.progress = cb }
}

// base carries what every agent shares: attributes, state machine, output.
type base struct {
	attrs    Attributes
	fsm      *machine
	logger   *logging.Logger
	progress progress.Callback
}

func newBase(attrs Attributes, table transitionTable, opts []Option) base {
	b := base{attrs: attrs, fsm: newMachine(table)}
	for _, opt := range opts {
		opt(&b)
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	b.logger = b.logger.With(zap.String("agent", attrs.Position))
	return b
}

// Attributes implements Agent.
func (b *base) Attributes() Attributes {
	return b.attrs
}

// State implements Agent.
func (b *base) State() State {
	return b.fsm.current()
}

// History returns the states the agent has passed through, in order.
func (b *base) History() []State {
	return b.fsm.visited()
}

func (b *base) moveTo(ctx context.Context, to State) error {
	from := b.fsm.current()
	if err := b.fsm.transition(to); err != nil {
		return b.fail(err)
	}
	b.logger.Debug(ctx, "agent state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (b *base) fail(err error) error {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return err
	}
	return &PhaseError{Position: b.attrs.Position, State: b.fsm.current(), Err: err}
}

func (b *base) say(kind progress.Kind, statement string) {
	b.progress.Report(kind, b.attrs.Position, statement)
}
