package store

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-records/internal/query"
)

// Domain errors for the store package.
//
// Validation failures surface the schema package's errors unchanged
// (schema.ErrInvalidIdentifier and friends) and engine failures surface
// sqlexec.ErrExecutionFailed / sqlexec.ErrTransactionFailed, all inside an
// *OpError.
var (
	// ErrTableNotFound is returned when an operation requires an existing table.
	ErrTableNotFound = errors.New("store: table not found")

	// ErrTableAlreadyExists is returned when creating a table that exists.
	ErrTableAlreadyExists = errors.New("store: table already exists")

	// ErrReservedTable is returned for operations on internal tables.
	ErrReservedTable = errors.New("store: reserved table name")

	// ErrEmptyRecordSet is returned when a bulk insert or update has nothing to write.
	ErrEmptyRecordSet = query.ErrEmptyRecordSet

	// ErrIDColumn is returned when a caller tries to add or relate through
	// the identity column.
	ErrIDColumn = errors.New("store: identity column is managed by the store")

	// ErrRelationExists is returned when two tables are already related.
	ErrRelationExists = errors.New("store: relation already exists")

	// ErrRelationNotFound is returned when two tables are not related.
	ErrRelationNotFound = errors.New("store: relation not found")

	// ErrInvalidRelation is returned for a relation the store cannot model.
	ErrInvalidRelation = errors.New("store: invalid relation")

	// ErrInvalidJSON is returned when a JSON payload has the wrong shape.
	ErrInvalidJSON = errors.New("store: invalid JSON payload")
)

// OpError annotates a failure with the operation and table it came from.
type OpError struct {
	Op    string
	Table string
	Err   error
}

func (e *OpError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Table: table, Err: err}
}
