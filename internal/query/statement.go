package query

import (
	"database/sql"
	"strings"
)

// Params is an ordered list of named statement parameters.
// Names are stored without the "@" prefix used in statement text.
type Params []sql.NamedArg

// Map returns the parameters as name → value.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, arg := range p {
		m[arg.Name] = arg.Value
	}
	return m
}

// Args returns the parameters in the form accepted by database/sql.
func (p Params) Args() []any {
	args := make([]any, len(p))
	for i, arg := range p {
		args[i] = arg
	}
	return args
}

// Statement is a single SQL statement with its bound parameters.
type Statement struct {
	SQL    string
	Params Params
}

// Args returns the statement parameters for database/sql.
func (s Statement) Args() []any {
	return s.Params.Args()
}

// Batch is a sequence of multi-row INSERT statements produced for one table.
type Batch struct {
	Statements []Statement
	Rows       int
}

// SQL returns every statement's text, each terminated by a semicolon.
func (b Batch) SQL() string {
	var sb strings.Builder
	for i, stmt := range b.Statements {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(stmt.SQL)
		sb.WriteByte(';')
	}
	return sb.String()
}

// Params returns the parameters of all statements flattened in order.
// Placeholder names are unique across the whole batch.
func (b Batch) Params() Params {
	var out Params
	for _, stmt := range b.Statements {
		out = append(out, stmt.Params...)
	}
	return out
}
