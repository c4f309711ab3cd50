// Package gateway defines the remote SQL gateway abstraction the workbench
// executes statements against, plus a REST implementation of it.
package gateway

import (
	"context"
	"time"
)

// SessionHandle identifies a remote execution context.
type SessionHandle string

// OperationHandle identifies one submitted statement's remote execution.
type OperationHandle string

// SessionInfo is the metadata the gateway reports for an open session.
type SessionInfo struct {
	Handle     SessionHandle
	Properties map[string]string
}

// Client is the minimal gateway surface the execution core depends on.
// Implementations must be safe for concurrent use: multiple statement
// executors share one client.
type Client interface {
	// CreateSession opens a new remote session with the given properties.
	CreateSession(ctx context.Context, properties map[string]string) (SessionHandle, error)

	// GetSessionInfo probes whether a session still exists on the gateway.
	GetSessionInfo(ctx context.Context, handle SessionHandle) (*SessionInfo, error)

	// CloseSession releases a remote session.
	CloseSession(ctx context.Context, handle SessionHandle) error

	// SubmitStatement submits a SQL statement for asynchronous execution and
	// returns the handle used to poll for its results.
	SubmitStatement(ctx context.Context, handle SessionHandle, statement string) (OperationHandle, error)

	// FetchResults retrieves one page of results for an operation. The token
	// starts at 0 and advances via the page's NextToken.
	FetchResults(ctx context.Context, session SessionHandle, op OperationHandle, token int64) (*ResultsPage, error)

	// CancelOperation requests cancellation of a running operation. Callers
	// treat this as best effort and never depend on it succeeding.
	CancelOperation(ctx context.Context, session SessionHandle, op OperationHandle) error
}

// Options configures the REST gateway client.
type Options struct {
	// BaseURL is the gateway endpoint, e.g. "http://localhost:8083".
	BaseURL string

	// APIVersion selects the REST API version path segment.
	// Default: "v2"
	APIVersion string

	// HTTPTimeout bounds each individual round trip.
	// Default: 30s
	HTTPTimeout time.Duration

	// DebugMode logs raw request/response payloads.
	// Default: false
	DebugMode bool
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		APIVersion:  "v2",
		HTTPTimeout: 30 * time.Second,
		DebugMode:   false,
	}
}
