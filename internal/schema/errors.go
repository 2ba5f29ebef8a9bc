package schema

import (
	"errors"
	"fmt"
)

// Domain errors for the schema package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, schema.ErrInvalidIdentifier) {
//	    // reject the request
//	}
var (
	// ErrInvalidIdentifier is returned when a table or column name is empty or
	// contains characters outside [A-Za-z0-9_].
	ErrInvalidIdentifier = errors.New("schema: invalid identifier")

	// ErrInvalidColumnType is returned when a declared column type is not in
	// the allow-list or carries an unsupported constraint suffix.
	ErrInvalidColumnType = errors.New("schema: invalid column type")

	// ErrDuplicateColumn is returned when a column set names the same column twice.
	ErrDuplicateColumn = errors.New("schema: duplicate column")

	// ErrMissingID is returned when an id-bearing operation gets a null id.
	ErrMissingID = errors.New("schema: missing id")

	// ErrSchemaMismatch is returned in strict mode when a record does not fit
	// the table's declared columns.
	ErrSchemaMismatch = errors.New("schema: record does not match table schema")

	// ErrUnknownColumn is returned in strict mode when a record references a
	// column the table does not have. It wraps ErrSchemaMismatch.
	ErrUnknownColumn = fmt.Errorf("%w: unknown column", ErrSchemaMismatch)

	// ErrTypeMismatch is returned in strict mode when a value is not
	// compatible with its column's declared type. It wraps ErrSchemaMismatch.
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", ErrSchemaMismatch)
)
