// Package query builds parameterised SQL for tables whose shape is only
// known at runtime.
//
// Every builder is pure: it takes already-validated identifiers and
// records and returns a Statement (SQL text plus ordered named parameters).
// Values are never interpolated; they are bound through sql.NamedArg using
// SQLite's @name placeholder syntax.
//
// Multi-row inserts are split so that no single statement exceeds the
// configured batch size or SQLite's bound-variable limit.
package query
