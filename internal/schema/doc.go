// Package schema validates the names, types and values that flow into
// dynamically generated SQL.
//
// SQLite cannot bind identifiers as parameters, so every table and column
// name is interpolated into statement text. This package is the gate in
// front of that interpolation:
//
//   - Identifiers must match ^[A-Za-z0-9_]+$
//   - Declared column types must start with INTEGER, TEXT, REAL, BLOB or
//     NUMERIC and may only carry constraint clauses from a fixed grammar
//   - Id-bearing operations reject a null id
//
// Strict mode (ValidateRecordAgainstSchema) additionally checks a record
// against the table's declared columns before any statement is run.
//
// All checks are pure and safe for concurrent use.
package schema
