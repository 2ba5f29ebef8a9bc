package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-records/internal/record"
)

// Validation patterns.
const (
	identifierPattern = `^[A-Za-z0-9_]+$`

	// constraintPattern matches the optional suffix after the base type.
	// Every clause is a fixed keyword sequence or a literal that cannot
	// terminate the surrounding statement.
	constraintPattern = `(?i)^(\s+(` +
		`PRIMARY\s+KEY(\s+(ASC|DESC))?` +
		`|AUTOINCREMENT` +
		`|NOT\s+NULL` +
		`|NULL` +
		`|UNIQUE` +
		`|COLLATE\s+(BINARY|NOCASE|RTRIM)` +
		`|DEFAULT\s+(-?[0-9]+(\.[0-9]+)?|'[^']*'|NULL|TRUE|FALSE|CURRENT_TIMESTAMP)` +
		`|REFERENCES\s+[A-Za-z0-9_]+(\s*\(\s*[A-Za-z0-9_]+\s*\))?(\s+ON\s+DELETE\s+(CASCADE|SET\s+NULL|RESTRICT|NO\s+ACTION))?` +
		`))*\s*$`
)

var (
	identifierRegex = regexp.MustCompile(identifierPattern)
	constraintRegex = regexp.MustCompile(constraintPattern)
)

var validTypes map[ColumnType]struct{}

func init() {
	validTypes = make(map[ColumnType]struct{}, len(AllColumnTypes()))
	for _, t := range AllColumnTypes() {
		validTypes[t] = struct{}{}
	}
}

// ValidateIdentifier checks a table or column name against the safe pattern.
func ValidateIdentifier(name string) error {
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateColumnType checks a declared type against the allow-list and the
// constraint grammar.
func ValidateColumnType(decl string) error {
	trimmed := strings.TrimSpace(decl)
	base := BaseType(trimmed)
	if base == "" {
		return fmt.Errorf("%w: %q", ErrInvalidColumnType, decl)
	}
	suffix := trimmed[len(strings.Fields(trimmed)[0]):]
	if !constraintRegex.MatchString(suffix) {
		return fmt.Errorf("%w: unsupported constraint in %q", ErrInvalidColumnType, decl)
	}
	return nil
}

// ValidateColumnTypes validates every column name and declared type.
func ValidateColumnTypes(cols Columns) error {
	seen := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if err := ValidateIdentifier(col.Name); err != nil {
			return err
		}
		if err := ValidateColumnType(col.Type); err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
		key := strings.ToLower(col.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateRecordKeys validates every key of rec as an identifier.
// Values are not inspected.
func ValidateRecordKeys(rec record.Record) error {
	for key := range rec.All() {
		if err := ValidateIdentifier(key); err != nil {
			return err
		}
	}
	return nil
}

// ValidateID rejects a null id.
func ValidateID(id record.Value) error {
	if id.IsNull() {
		return ErrMissingID
	}
	return nil
}

// ValidateRecordAgainstSchema checks that every key of rec names a column in
// meta and that every value is compatible with the column's declared type.
func ValidateRecordAgainstSchema(rec record.Record, meta Columns) error {
	for key, val := range rec.All() {
		col, ok := meta.Find(key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
		base := BaseType(col.Type)
		if !Compatible(base, val.Kind()) {
			return fmt.Errorf("%w: column %s is %s, got %s", ErrTypeMismatch, key, col.Type, val.Kind())
		}
	}
	return nil
}
