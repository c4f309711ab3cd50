package executor

import (
	"fmt"
	"strings"

	"github.com/avichaym/flinksql-workbench/gateway"
)

// ExecutionError represents a failed statement execution. It retains the
// statement id, the operation handle when known, and the original remote
// error text via the cause chain.
type ExecutionError struct {
	Code        string
	Message     string
	StatementID string
	Operation   gateway.OperationHandle
	Cause       error
}

// Error codes.
const (
	CodeSubmitFailed     = "STATEMENT_SUBMIT_FAILED"
	CodePollFailed       = "RESULT_POLL_FAILED"
	CodePollLimitReached = "POLL_LIMIT_REACHED"
	CodeExecutorReused   = "EXECUTOR_ALREADY_USED"
	CodeDuplicateID      = "STATEMENT_ALREADY_RUNNING"
)

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.StatementID != "" {
		fmt.Fprintf(&b, " [statement=%s", e.StatementID)
		if e.Operation != "" {
			fmt.Fprintf(&b, " operation=%s", e.Operation)
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
