package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avichaym/flinksql-workbench/gateway"
	"github.com/avichaym/flinksql-workbench/logging"
	"github.com/avichaym/flinksql-workbench/session"
)

// ExecutionResult is what Coordinator.Execute hands back to the caller:
// the terminal outcome plus the final state snapshot.
type ExecutionResult struct {
	StatementID string
	Outcome     Outcome
	Snapshot    *StateSnapshot
}

// Coordinator creates a StatementExecutor per submitted statement, tracks
// the in-flight ones, re-publishes their events globally, and serializes
// session-affecting operations against them.
type Coordinator struct {
	gw       gateway.Client
	sessions *session.Coordinator
	opts     Options
	logger   logging.Logger

	mu     sync.Mutex
	active map[string]*StatementExecutor

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	history *History
}

// NewCoordinator creates an execution coordinator over the given gateway
// client and session coordinator.
func NewCoordinator(gw gateway.Client, sessions *session.Coordinator, opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		gw:        gw,
		sessions:  sessions,
		opts:      opts,
		logger:    opts.Logger.WithFields(logging.String("component", "execution")),
		active:    make(map[string]*StatementExecutor),
		listeners: make(map[int]Listener),
		history:   NewHistory(opts.HistorySize),
	}
}

// Execute runs a statement under a generated identifier.
func (c *Coordinator) Execute(ctx context.Context, statement string) (*ExecutionResult, error) {
	return c.ExecuteWithID(ctx, uuid.New().String(), statement)
}

// ExecuteWithID runs a statement under the caller's identifier. It blocks
// until the execution reaches a terminal state; run it in its own goroutine
// to execute statements concurrently.
func (c *Coordinator) ExecuteWithID(ctx context.Context, statementID, statement string) (*ExecutionResult, error) {
	if statementID == "" {
		statementID = uuid.New().String()
	}

	exec := NewStatementExecutor(statementID, c.gw, c.sessions, c.opts)

	c.mu.Lock()
	if _, dup := c.active[statementID]; dup {
		c.mu.Unlock()
		return nil, &ExecutionError{
			Code:        CodeDuplicateID,
			Message:     "a statement with this id is already running",
			StatementID: statementID,
		}
	}
	c.active[statementID] = exec
	c.mu.Unlock()

	// Re-publish the executor's state events to global listeners.
	exec.AddListener(func(ev Event) { c.publish(ev) })

	started := time.Now()
	c.publish(Event{StatementID: statementID, Type: EventStarted, Timestamp: started})

	outcome, err := exec.Execute(ctx, statement)
	snap := exec.Snapshot()

	c.deregister(statementID)
	c.history.Add(HistoryEntry{
		StatementID: statementID,
		Statement:   statement,
		Outcome:     outcome,
		Error:       errorText(err),
		RowCount:    snap.RowCount(),
		StartedAt:   started,
		Duration:    time.Since(started),
	})

	switch {
	case err != nil:
		c.publish(Event{StatementID: statementID, Type: EventErrored, State: snap, Err: err, Timestamp: time.Now()})
	case outcome == OutcomeCancelled:
		c.publish(Event{StatementID: statementID, Type: EventCancelled, State: snap, Timestamp: time.Now()})
	default:
		c.publish(Event{StatementID: statementID, Type: EventCompleted, State: snap, Timestamp: time.Now()})
	}

	if err != nil {
		return nil, err
	}
	return &ExecutionResult{StatementID: statementID, Outcome: outcome, Snapshot: snap}, nil
}

// Cancel cancels one in-flight statement and waits for its executor to
// unwind. An unknown id is "not found", not an error.
func (c *Coordinator) Cancel(ctx context.Context, statementID string) bool {
	c.mu.Lock()
	exec, ok := c.active[statementID]
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("cancel requested for unknown statement",
			logging.String("statementId", statementID))
		return false
	}

	exec.Cancel(ctx)

	select {
	case <-exec.Done():
	case <-ctx.Done():
	}

	c.deregister(statementID)
	return true
}

// CancelAll cancels every in-flight statement, tolerating individual
// failures, and reports the per-statement result. A nil map value means the
// executor unwound; a context error means the wait was abandoned.
func (c *Coordinator) CancelAll(ctx context.Context) map[string]error {
	c.mu.Lock()
	execs := make([]*StatementExecutor, 0, len(c.active))
	for _, exec := range c.active {
		execs = append(execs, exec)
	}
	c.mu.Unlock()

	report := make(map[string]error, len(execs))
	for _, exec := range execs {
		exec.Cancel(ctx)
	}
	for _, exec := range execs {
		select {
		case <-exec.Done():
			report[exec.ID()] = nil
		case <-ctx.Done():
			report[exec.ID()] = ctx.Err()
		}
		c.deregister(exec.ID())
	}

	if len(report) > 0 {
		c.logger.Info("cancelled all statements", logging.Int("count", len(report)))
	}
	return report
}

// CloseSession cancels all in-flight statements, then closes the current
// session, so no executor polls a disappearing session.
func (c *Coordinator) CloseSession(ctx context.Context) {
	c.CancelAll(ctx)
	c.sessions.CloseSession(ctx)
}

// RefreshSession cancels all in-flight statements, then replaces the
// current session.
func (c *Coordinator) RefreshSession(ctx context.Context) (*session.Session, error) {
	c.CancelAll(ctx)
	return c.sessions.RefreshSession(ctx)
}

// SessionInfo returns a snapshot of the current session state.
func (c *Coordinator) SessionInfo() session.Info {
	return c.sessions.Info()
}

// OnSessionChange registers a session listener.
func (c *Coordinator) OnSessionChange(l session.Listener) {
	c.sessions.OnSessionChange(l)
}

// ActiveStatements returns the ids of all in-flight statements.
func (c *Coordinator) ActiveStatements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

// AddListener registers a global listener and returns its id.
func (c *Coordinator) AddListener(l Listener) int {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	return id
}

// RemoveListener unregisters a global listener.
func (c *Coordinator) RemoveListener(id int) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.listeners, id)
}

// History returns the recorded finished executions, oldest first.
func (c *Coordinator) History() []HistoryEntry {
	return c.history.Entries()
}

// publish fans an event out to global listeners over a stable snapshot of
// the collection.
func (c *Coordinator) publish(ev Event) {
	c.listenersMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

// deregister removes an executor from the active registry. Idempotent:
// both the execute path and the cancel path call it.
func (c *Coordinator) deregister(statementID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, statementID)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
