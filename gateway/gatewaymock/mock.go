// Package gatewaymock provides a scripted in-memory gateway.Client for tests.
package gatewaymock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avichaym/flinksql-workbench/gateway"
)

// Mock implements gateway.Client with scripted behavior and call tracking.
type Mock struct {
	mu sync.Mutex

	// Behavior configuration
	createErr    error
	getInfoErr   error
	closeErr     error
	submitErr    error
	fetchErr     error
	fetchErrAt   map[int64]error
	cancelErr    error
	fetchDelay   time.Duration
	sessionSeq   int
	operationSeq int

	// scripts maps an operation handle to its ordered result pages; the
	// fetch token indexes into the slice.
	scripts map[gateway.OperationHandle][]*gateway.ResultsPage

	// pending holds pages for the next submitted statement, keyed by
	// statement text.
	pending map[string][]*gateway.ResultsPage

	openSessions map[gateway.SessionHandle]map[string]string
	submitted    []string
	cancelledOps []gateway.OperationHandle

	// Call tracking
	createCalls atomic.Int32
	getCalls    atomic.Int32
	closeCalls  atomic.Int32
	submitCalls atomic.Int32
	fetchCalls  atomic.Int32
	cancelCalls atomic.Int32
}

// New creates a mock gateway with no scripted statements.
func New() *Mock {
	return &Mock{
		fetchErrAt:   make(map[int64]error),
		scripts:      make(map[gateway.OperationHandle][]*gateway.ResultsPage),
		pending:      make(map[string][]*gateway.ResultsPage),
		openSessions: make(map[gateway.SessionHandle]map[string]string),
	}
}

// WithCreateError configures CreateSession to fail.
func (m *Mock) WithCreateError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
	return m
}

// WithGetInfoError configures GetSessionInfo to fail.
func (m *Mock) WithGetInfoError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getInfoErr = err
	return m
}

// WithCloseError configures CloseSession to fail.
func (m *Mock) WithCloseError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
	return m
}

// WithSubmitError configures SubmitStatement to fail.
func (m *Mock) WithSubmitError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
	return m
}

// WithFetchError configures every FetchResults call to fail.
func (m *Mock) WithFetchError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
	return m
}

// WithFetchErrorAt configures FetchResults to fail for one specific token.
func (m *Mock) WithFetchErrorAt(token int64, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrAt[token] = err
	return m
}

// WithCancelError configures CancelOperation to fail.
func (m *Mock) WithCancelError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelErr = err
	return m
}

// WithFetchDelay makes each FetchResults call block for the given duration,
// honoring context cancellation.
func (m *Mock) WithFetchDelay(d time.Duration) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchDelay = d
	return m
}

// ScriptStatement registers the result pages that fetching the next
// submission of this exact statement text will return, page i at token i.
func (m *Mock) ScriptStatement(statement string, pages ...*gateway.ResultsPage) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[statement] = pages
	return m
}

// CreateSession implements gateway.Client.
func (m *Mock) CreateSession(ctx context.Context, properties map[string]string) (gateway.SessionHandle, error) {
	m.createCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return "", m.createErr
	}
	m.sessionSeq++
	handle := gateway.SessionHandle(fmt.Sprintf("mock-session-%d", m.sessionSeq))
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	m.openSessions[handle] = props
	return handle, nil
}

// GetSessionInfo implements gateway.Client.
func (m *Mock) GetSessionInfo(ctx context.Context, handle gateway.SessionHandle) (*gateway.SessionInfo, error) {
	m.getCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getInfoErr != nil {
		return nil, m.getInfoErr
	}
	props, ok := m.openSessions[handle]
	if !ok {
		return nil, fmt.Errorf("session %s not found", handle)
	}
	return &gateway.SessionInfo{Handle: handle, Properties: props}, nil
}

// CloseSession implements gateway.Client.
func (m *Mock) CloseSession(ctx context.Context, handle gateway.SessionHandle) error {
	m.closeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.openSessions, handle)
	return m.closeErr
}

// SubmitStatement implements gateway.Client.
func (m *Mock) SubmitStatement(ctx context.Context, handle gateway.SessionHandle, statement string) (gateway.OperationHandle, error) {
	m.submitCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return "", m.submitErr
	}
	if _, ok := m.openSessions[handle]; !ok {
		return "", fmt.Errorf("session %s not found", handle)
	}

	m.operationSeq++
	op := gateway.OperationHandle(fmt.Sprintf("mock-operation-%d", m.operationSeq))
	m.submitted = append(m.submitted, statement)

	if pages, ok := m.pending[statement]; ok {
		m.scripts[op] = pages
	}
	return op, nil
}

// FetchResults implements gateway.Client.
func (m *Mock) FetchResults(ctx context.Context, session gateway.SessionHandle, op gateway.OperationHandle, token int64) (*gateway.ResultsPage, error) {
	m.fetchCalls.Add(1)

	m.mu.Lock()
	delay := m.fetchDelay
	fetchErr := m.fetchErr
	tokenErr := m.fetchErrAt[token]
	pages := m.scripts[op]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if tokenErr != nil {
		return nil, tokenErr
	}
	if pages == nil {
		return nil, fmt.Errorf("operation %s not found", op)
	}
	if token < 0 || token >= int64(len(pages)) {
		return nil, fmt.Errorf("no page at token %d for operation %s", token, op)
	}
	return pages[token], nil
}

// CancelOperation implements gateway.Client.
func (m *Mock) CancelOperation(ctx context.Context, session gateway.SessionHandle, op gateway.OperationHandle) error {
	m.cancelCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelledOps = append(m.cancelledOps, op)
	return m.cancelErr
}

// Accessors for call tracking.

func (m *Mock) CreateCallCount() int { return int(m.createCalls.Load()) }
func (m *Mock) GetCallCount() int    { return int(m.getCalls.Load()) }
func (m *Mock) CloseCallCount() int  { return int(m.closeCalls.Load()) }
func (m *Mock) SubmitCallCount() int { return int(m.submitCalls.Load()) }
func (m *Mock) FetchCallCount() int  { return int(m.fetchCalls.Load()) }
func (m *Mock) CancelCallCount() int { return int(m.cancelCalls.Load()) }

// SubmittedStatements returns every statement text submitted so far.
func (m *Mock) SubmittedStatements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.submitted))
	copy(out, m.submitted)
	return out
}

// CancelledOperations returns every operation handle that was cancelled.
func (m *Mock) CancelledOperations() []gateway.OperationHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]gateway.OperationHandle, len(m.cancelledOps))
	copy(out, m.cancelledOps)
	return out
}

// OpenSessionCount returns how many sessions are currently open.
func (m *Mock) OpenSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.openSessions)
}

// Page is a convenience builder for a scripted result page.
func Page(resultType gateway.ResultType, kind gateway.ResultKind, columns []gateway.Column, rows []gateway.RowData, next *int64) *gateway.ResultsPage {
	return &gateway.ResultsPage{
		ResultType: resultType,
		ResultKind: kind,
		Columns:    columns,
		Rows:       rows,
		NextToken:  next,
	}
}

// NextToken returns a pointer to the given token value.
func NextToken(v int64) *int64 { return &v }
