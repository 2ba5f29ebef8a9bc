package schema

import (
	"strings"

	"github.com/nerrad567/gray-logic-records/internal/record"
)

// ColumnType is one of the SQLite storage affinities accepted for user columns.
type ColumnType string

// Allowed column types.
const (
	TypeInteger ColumnType = "INTEGER"
	TypeText    ColumnType = "TEXT"
	TypeReal    ColumnType = "REAL"
	TypeBlob    ColumnType = "BLOB"
	TypeNumeric ColumnType = "NUMERIC"
)

// AllColumnTypes returns the allow-list in declaration order.
func AllColumnTypes() []ColumnType {
	return []ColumnType{TypeInteger, TypeText, TypeReal, TypeBlob, TypeNumeric}
}

// DefaultIDColumn is the reserved identity column injected into every table.
const DefaultIDColumn = "Id"

// IDColumnType is the declared type of the injected identity column.
const IDColumnType = "INTEGER PRIMARY KEY AUTOINCREMENT"

// Column is a single column definition: a name and its declared type,
// optionally including constraint suffixes ("TEXT NOT NULL").
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Columns is an ordered column set. Order is preserved in generated DDL.
type Columns []Column

// Find returns the column named name. SQLite identifiers are
// case-insensitive, so the lookup is too.
func (c Columns) Find(name string) (Column, bool) {
	for _, col := range c {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return Column{}, false
}

// Has reports whether a column named name exists (case-insensitive).
func (c Columns) Has(name string) bool {
	_, ok := c.Find(name)
	return ok
}

// Names returns the column names in order.
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// Map returns the column set as name → declared type. Order is lost.
func (c Columns) Map() map[string]string {
	m := make(map[string]string, len(c))
	for _, col := range c {
		m[col.Name] = col.Type
	}
	return m
}

// BaseType returns the affinity keyword of a declared type
// ("integer primary key" → INTEGER). Unknown declarations return "".
func BaseType(decl string) ColumnType {
	fields := strings.Fields(decl)
	if len(fields) == 0 {
		return ""
	}
	t := ColumnType(strings.ToUpper(fields[0]))
	if _, ok := validTypes[t]; ok {
		return t
	}
	return ""
}

// Compatible reports whether a value of kind k may be stored in a column of
// type t under strict validation. NULL is always compatible.
func Compatible(t ColumnType, k record.Kind) bool {
	if k == record.KindNull {
		return true
	}
	switch t {
	case TypeInteger:
		return k == record.KindInteger || k == record.KindBool
	case TypeReal:
		return k == record.KindReal || k == record.KindInteger
	case TypeText:
		return k == record.KindText
	case TypeBlob:
		return k == record.KindBlob
	case TypeNumeric:
		return k == record.KindInteger || k == record.KindReal || k == record.KindBool
	default:
		return false
	}
}
