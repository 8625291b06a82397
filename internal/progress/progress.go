// Package progress defines the agent message events shown to the user while a
// pipeline runs.
package progress

import "time"

// Kind categorizes an agent message.
type Kind string

const (
	KindAICall   Kind = "ai_call"
	KindUnitTest Kind = "unit_test"
	KindIssue    Kind = "issue"
)

// Event is one agent statement, e.g. "Agent: Backend Developer: testing code".
type Event struct {
	Kind      Kind      `json:"kind"`
	Position  string    `json:"position"`
	Statement string    `json:"statement"`
	Time      time.Time `json:"time"`
}

// Callback receives progress events. A nil Callback discards them.
type Callback func(Event)

// Report sends an event stamped with the current time.
func (c Callback) Report(kind Kind, position, statement string) {
	if c == nil {
		return
	}
	c(Event{Kind: kind, Position: position, Statement: statement, Time: time.Now()})
}

// Tee returns a Callback that forwards to every non-nil callback in order.
func Tee(callbacks ...Callback) Callback {
	return func(e Event) {
		for _, cb := range callbacks {
			if cb != nil {
				cb(e)
			}
		}
	}
}
