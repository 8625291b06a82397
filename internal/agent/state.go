package agent

import (
	"fmt"
	"slices"
)

// State is an agent's runtime state.
type State string

const (
	// StateDiscovery is the initial state of every agent.
	StateDiscovery State = "discovery"

	// StateWorking produces or revises output.
	StateWorking State = "working"

	// StateValidating checks output produced earlier.
	StateValidating State = "validating"

	// StateFinished is terminal.
	StateFinished State = "finished"
)

// IsTerminal reports whether the agent stops in this state.
func (s State) IsTerminal() bool {
	return s == StateFinished
}

// transitionTable lists the allowed next states for each state.
type transitionTable map[State][]State

// machine tracks the current state and rejects transitions outside its table.
type machine struct {
	table   transitionTable
	state   State
	history []State
}

func newMachine(table transitionTable) *machine {
	return &machine{table: table, state: StateDiscovery, history: []State{StateDiscovery}}
}

func (m *machine) current() State {
	return m.state
}

func (m *machine) visited() []State {
	return slices.Clone(m.history)
}

func (m *machine) canTransition(to State) bool {
	return slices.Contains(m.table[m.state], to)
}

func (m *machine) transition(to State) error {
	if !m.canTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
