package sqlexec

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionFailed is returned when the engine rejects a statement.
	ErrExecutionFailed = errors.New("sqlexec: execution failed")

	// ErrTransactionFailed is returned when any statement in a transaction
	// fails. The transaction has been rolled back before it is returned.
	ErrTransactionFailed = errors.New("sqlexec: transaction failed")
)

// ExecError records a statement the engine rejected.
//
// errors.Is(err, ErrExecutionFailed) reports true for every ExecError, and
// the engine's own error is reachable with errors.As.
type ExecError struct {
	Op  string
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("sqlexec: %s: %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Err}
}

func execError(op, query string, err error) error {
	return &ExecError{Op: op, SQL: query, Err: err}
}
