// Package executor drives asynchronous statement execution against the
// gateway: per-statement poll loops, changelog folding into materialized
// result sets, and multi-consumer event notification.
package executor

import (
	"time"

	"github.com/avichaym/flinksql-workbench/gateway"
)

// Phase is the lifecycle phase of one statement execution.
type Phase int

const (
	// RUNNING means the executor owns an active poll loop.
	RUNNING Phase = iota
	// STOPPED is terminal: completed, cancelled, or failed.
	STOPPED
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case RUNNING:
		return "RUNNING"
	case STOPPED:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the terminal result of one execution attempt.
type Outcome string

const (
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeFailed    Outcome = "FAILED"
)

// EventType discriminates published events so listeners can ignore shapes
// they do not understand.
type EventType string

const (
	// Lifecycle events.
	EventStarted   EventType = "STARTED"
	EventCompleted EventType = "COMPLETED"
	EventErrored   EventType = "ERRORED"
	EventCancelled EventType = "CANCELLED"

	// EventStateUpdated carries a full state snapshot.
	EventStateUpdated EventType = "STATE_UPDATED"
)

// IsLifecycle reports whether the event marks a lifecycle transition rather
// than a state snapshot.
func (t EventType) IsLifecycle() bool {
	return t != EventStateUpdated
}

// Event is published to listeners. The publisher owns it for the duration of
// the synchronous call; listeners copy what they keep.
type Event struct {
	StatementID string
	Type        EventType
	State       *StateSnapshot
	Err         error
	Timestamp   time.Time
}

// Listener receives events synchronously.
type Listener func(Event)

// StateSnapshot is a point-in-time copy of one executor's local state.
type StateSnapshot struct {
	StatementID string
	Phase       Phase
	ResultType  gateway.ResultType
	ResultKind  gateway.ResultKind
	Columns     []gateway.Column
	Rows        [][]interface{}
	Diagnostics []string
	Err         error
	UpdatedAt   time.Time
}

// RowCount returns the number of accumulated rows in the snapshot.
func (s *StateSnapshot) RowCount() int {
	return len(s.Rows)
}
