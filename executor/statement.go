package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avichaym/flinksql-workbench/gateway"
	"github.com/avichaym/flinksql-workbench/logging"
	"github.com/avichaym/flinksql-workbench/session"
)

// Options configures statement execution.
type Options struct {
	// PollInterval is the fixed delay between result polls.
	// Default: 100ms
	PollInterval time.Duration

	// PollSlice subdivides the inter-poll delay so cancellation is observed
	// promptly. Default: 20ms
	PollSlice time.Duration

	// MaxPollIterations bounds the poll loop to guarantee termination.
	// Default: 1000
	MaxPollIterations int

	// HistorySize bounds the coordinator's in-memory execution history.
	// Default: 100
	HistorySize int

	// DebugMode logs every fetched page.
	// Default: false
	DebugMode bool

	// Logger is the logger to use. Nil defaults to a no-op logger.
	Logger logging.Logger
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		PollInterval:      100 * time.Millisecond,
		PollSlice:         20 * time.Millisecond,
		MaxPollIterations: 1000,
		HistorySize:       100,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.PollSlice <= 0 || o.PollSlice > o.PollInterval {
		o.PollSlice = def.PollSlice
		if o.PollSlice > o.PollInterval {
			o.PollSlice = o.PollInterval
		}
	}
	if o.MaxPollIterations <= 0 {
		o.MaxPollIterations = def.MaxPollIterations
	}
	if o.HistorySize <= 0 {
		o.HistorySize = def.HistorySize
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// StatementExecutor runs exactly one statement: it submits the statement,
// polls its operation until the stream ends, folds changelog events into a
// local result set, and notifies listeners on every state change. Executors
// are single-use.
type StatementExecutor struct {
	id       string
	traceID  string
	gw       gateway.Client
	sessions *session.Coordinator
	opts     Options
	logger   logging.Logger

	mu            sync.Mutex
	started       bool
	phase         Phase
	sessionHandle gateway.SessionHandle
	op            gateway.OperationHandle
	resultType    gateway.ResultType
	resultKind    gateway.ResultKind
	buf           resultBuffer
	lastErr       error
	updatedAt     time.Time

	cancelled     atomic.Bool
	remoteCancels atomic.Int32

	done chan struct{}

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// NewStatementExecutor creates an executor for one statement attempt.
func NewStatementExecutor(id string, gw gateway.Client, sessions *session.Coordinator, opts Options) *StatementExecutor {
	opts = opts.withDefaults()
	traceID := uuid.New().String()
	return &StatementExecutor{
		id:       id,
		traceID:  traceID,
		gw:       gw,
		sessions: sessions,
		opts:     opts,
		logger: opts.Logger.WithFields(
			logging.String("component", "executor"),
			logging.String("statementId", id),
			logging.String("traceId", traceID)),
		phase:     STOPPED,
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
	}
}

// ID returns the statement identifier.
func (e *StatementExecutor) ID() string { return e.id }

// Phase returns the current lifecycle phase.
func (e *StatementExecutor) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Done returns a channel closed when the execution attempt has fully
// unwound (phase STOPPED and Execute returned).
func (e *StatementExecutor) Done() <-chan struct{} { return e.done }

// Execute submits the statement and polls its results to completion.
// It returns COMPLETED or CANCELLED, or the failure that ended execution.
// The phase is STOPPED when it returns, whatever the path out.
func (e *StatementExecutor) Execute(ctx context.Context, statement string) (Outcome, error) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return OutcomeFailed, &ExecutionError{
			Code:        CodeExecutorReused,
			Message:     "statement executors are single-use",
			StatementID: e.id,
		}
	}
	e.started = true
	e.phase = RUNNING
	e.updatedAt = time.Now()
	e.mu.Unlock()

	defer close(e.done)
	defer e.stop()

	e.logger.Info("executing statement")

	sess, err := e.sessions.GetSession(ctx)
	if err != nil {
		e.fail(err)
		return OutcomeFailed, err
	}

	op, err := e.gw.SubmitStatement(ctx, sess.Handle, statement)
	if err != nil {
		execErr := &ExecutionError{
			Code:        CodeSubmitFailed,
			Message:     "statement submission failed",
			StatementID: e.id,
			Cause:       err,
		}
		e.fail(execErr)
		return OutcomeFailed, execErr
	}

	e.mu.Lock()
	e.op = op
	e.sessionHandle = sess.Handle
	e.mu.Unlock()

	e.logger.Debug("statement submitted", logging.String("operationHandle", string(op)))

	return e.pollLoop(ctx, sess.Handle, op)
}

// pollLoop drives the fetch-fold-publish cycle until end of stream,
// cancellation, a failure, or the iteration ceiling.
func (e *StatementExecutor) pollLoop(ctx context.Context, sessionHandle gateway.SessionHandle, op gateway.OperationHandle) (Outcome, error) {
	token := int64(0)

	for iter := 0; iter < e.opts.MaxPollIterations; iter++ {
		if e.cancelled.Load() {
			return e.finishCancelled(), nil
		}

		page, err := e.gw.FetchResults(ctx, sessionHandle, op, token)
		if err != nil {
			execErr := &ExecutionError{
				Code:        CodePollFailed,
				Message:     fmt.Sprintf("result fetch failed at page %d", token),
				StatementID: e.id,
				Operation:   op,
				Cause:       err,
			}
			e.fail(execErr)
			return OutcomeFailed, execErr
		}

		if e.opts.DebugMode {
			e.logger.Debug("fetched result page",
				logging.Int64("token", token),
				logging.String("resultType", string(page.ResultType)),
				logging.Int("rows", len(page.Rows)))
		}

		if e.applyPage(page) {
			e.publishState()
		}

		if e.cancelled.Load() {
			return e.finishCancelled(), nil
		}

		switch {
		case page.IsEndOfStream():
			return e.finishCompleted(), nil
		case page.HasMore():
			token = *page.NextToken
			e.sleepBetweenPolls(ctx)
		default:
			// Neither end-of-stream nor a further page: the stream is done.
			return e.finishCompleted(), nil
		}
	}

	execErr := &ExecutionError{
		Code:        CodePollLimitReached,
		Message:     fmt.Sprintf("result polling exceeded %d iterations", e.opts.MaxPollIterations),
		StatementID: e.id,
		Operation:   op,
	}
	e.fail(execErr)
	return OutcomeFailed, execErr
}

// applyPage folds one page into local state and reports whether anything
// observable changed.
func (e *StatementExecutor) applyPage(page *gateway.ResultsPage) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	if e.resultType != page.ResultType {
		e.resultType = page.ResultType
		changed = true
	}
	if e.resultKind != page.ResultKind {
		e.resultKind = page.ResultKind
		changed = true
	}
	if e.buf.setColumnsOnce(page.Columns) {
		changed = true
	}

	diagsBefore := len(e.buf.diagnostics)
	for _, change := range page.Rows {
		// Cancellation is re-checked between rows so large pages do not
		// delay it.
		if e.cancelled.Load() {
			break
		}
		e.buf.apply(change)
		changed = true
	}
	if len(e.buf.diagnostics) > diagsBefore {
		changed = true
		for _, d := range e.buf.diagnostics[diagsBefore:] {
			e.logger.Warn("changelog reconciliation anomaly", logging.String("detail", d))
		}
	}

	if changed {
		e.updatedAt = time.Now()
	}
	return changed
}

// Cancel requests cooperative cancellation: it raises the flag the poll loop
// observes within one sleep slice, and attempts one best-effort remote
// cancel of the operation when a handle is known. Local correctness never
// depends on the remote cancel succeeding.
func (e *StatementExecutor) Cancel(ctx context.Context) {
	if e.cancelled.Swap(true) {
		return
	}

	e.mu.Lock()
	op := e.op
	sessionHandle := e.sessionHandle
	e.mu.Unlock()

	if op == "" {
		return
	}
	e.remoteCancels.Add(1)
	if err := e.gw.CancelOperation(ctx, sessionHandle, op); err != nil {
		e.logger.Warn("best-effort remote cancel failed",
			logging.String("operationHandle", string(op)),
			logging.Err(err))
	}
}

// AddListener registers a listener and returns its id for removal. The
// listener immediately receives the current state if rows have accumulated
// or execution is running.
func (e *StatementExecutor) AddListener(l Listener) int {
	e.listenersMu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = l
	e.listenersMu.Unlock()

	snap := e.Snapshot()
	if snap.Phase == RUNNING || snap.RowCount() > 0 {
		l(Event{
			StatementID: e.id,
			Type:        EventStateUpdated,
			State:       snap,
			Timestamp:   time.Now(),
		})
	}
	return id
}

// RemoveListener unregisters a listener by id.
func (e *StatementExecutor) RemoveListener(id int) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	delete(e.listeners, id)
}

// Snapshot returns a copy of the executor's current state.
func (e *StatementExecutor) Snapshot() *StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// snapshotLocked builds a StateSnapshot. Callers must hold e.mu.
func (e *StatementExecutor) snapshotLocked() *StateSnapshot {
	return &StateSnapshot{
		StatementID: e.id,
		Phase:       e.phase,
		ResultType:  e.resultType,
		ResultKind:  e.resultKind,
		Columns:     e.buf.columnsSnapshot(),
		Rows:        e.buf.rowsSnapshot(),
		Diagnostics: e.buf.diagnosticsSnapshot(),
		Err:         e.lastErr,
		UpdatedAt:   e.updatedAt,
	}
}

// publishState notifies listeners with a fresh snapshot, iterating a stable
// copy of the listener collection so self-removal mid-callback is safe.
func (e *StatementExecutor) publishState() {
	snap := e.Snapshot()
	ev := Event{
		StatementID: e.id,
		Type:        EventStateUpdated,
		State:       snap,
		Timestamp:   time.Now(),
	}

	e.listenersMu.Lock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.listenersMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

// sleepBetweenPolls waits the fixed poll interval in short slices, returning
// early on cancellation or context expiry.
func (e *StatementExecutor) sleepBetweenPolls(ctx context.Context) {
	remaining := e.opts.PollInterval
	for remaining > 0 && !e.cancelled.Load() {
		slice := e.opts.PollSlice
		if slice > remaining {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(slice):
		}
		remaining -= slice
	}
}

// stop marks the executor terminal. Idempotent.
func (e *StatementExecutor) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != STOPPED {
		e.phase = STOPPED
		e.updatedAt = time.Now()
	}
}

// fail records the terminal error and publishes the stopped state.
func (e *StatementExecutor) fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.phase = STOPPED
	e.updatedAt = time.Now()
	e.mu.Unlock()

	e.logger.Error("statement execution failed", logging.Err(err))
	e.publishState()
}

// finishCancelled ends execution after the cancellation flag was observed.
// Rows accumulated so far are preserved.
func (e *StatementExecutor) finishCancelled() Outcome {
	e.mu.Lock()
	e.resultType = gateway.ResultTypeCancelled
	e.phase = STOPPED
	e.updatedAt = time.Now()
	e.mu.Unlock()

	e.logger.Info("statement execution cancelled")
	e.publishState()
	return OutcomeCancelled
}

// finishCompleted ends execution at end of stream.
func (e *StatementExecutor) finishCompleted() Outcome {
	e.stop()
	e.logger.Info("statement execution completed")
	e.publishState()
	return OutcomeCompleted
}

// RemoteCancelAttempts reports how many best-effort remote cancels were
// issued.
func (e *StatementExecutor) RemoteCancelAttempts() int {
	return int(e.remoteCancels.Load())
}
