package query

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// Batching limits.
const (
	// DefaultBatchSize is the number of rows per multi-row INSERT.
	DefaultBatchSize = 1000

	// MaxBatchSize is the hard cap on rows per multi-row INSERT.
	MaxBatchSize = 1000

	// MaxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER (3.32+).
	// Statements are split so no statement binds more parameters than this.
	MaxVariables = 32766
)

var (
	// ErrEmptyRecordSet is returned when a batch or update has nothing to write.
	ErrEmptyRecordSet = errors.New("query: empty record set")

	// ErrEmptyTableName is returned when a statement is requested without a table.
	ErrEmptyTableName = errors.New("query: empty table name")
)

// Builder produces parameterised SQL for dynamically defined tables.
//
// Builder performs no validation: every identifier passed in must already
// have been approved by the schema package. It holds only immutable settings
// and is safe for concurrent use.
type Builder struct {
	idColumn  string
	batchSize int
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDColumn sets the reserved identity column name.
func WithIDColumn(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.idColumn = name
		}
	}
}

// WithBatchSize sets the rows per multi-row INSERT, clamped to [1, MaxBatchSize].
func WithBatchSize(n int) Option {
	return func(b *Builder) {
		switch {
		case n <= 0:
			b.batchSize = DefaultBatchSize
		case n > MaxBatchSize:
			b.batchSize = MaxBatchSize
		default:
			b.batchSize = n
		}
	}
}

// New creates a Builder with the default id column and batch size.
func New(opts ...Option) *Builder {
	b := &Builder{
		idColumn:  schema.DefaultIDColumn,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IDColumn returns the reserved identity column name.
func (b *Builder) IDColumn() string { return b.idColumn }

// BatchSize returns the configured rows per multi-row INSERT.
func (b *Builder) BatchSize() int { return b.batchSize }

// WithIdentity returns cols with the identity column appended when missing.
// The input slice is never modified.
func (b *Builder) WithIdentity(cols schema.Columns) schema.Columns {
	out := make(schema.Columns, len(cols), len(cols)+1)
	copy(out, cols)
	if !out.Has(b.idColumn) {
		out = append(out, schema.Column{Name: b.idColumn, Type: schema.IDColumnType})
	}
	return out
}

// CreateTable builds CREATE TABLE, keeping caller column order and
// appending the identity column if the caller omitted it.
func (b *Builder) CreateTable(table string, cols schema.Columns) Statement {
	all := b.WithIdentity(cols)
	defs := make([]string, len(all))
	for i, col := range all {
		defs[i] = col.Name + " " + strings.TrimSpace(col.Type)
	}
	return Statement{
		SQL: "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")",
	}
}

// TableExists builds a catalog lookup returning one row when table exists.
// SQLite table names are case-insensitive, so the comparison is too.
func (b *Builder) TableExists(table string) Statement {
	return Statement{
		SQL:    "SELECT name FROM sqlite_master WHERE type = 'table' AND name = @name COLLATE NOCASE",
		Params: Params{sql.Named("name", table)},
	}
}

// DropTable builds DROP TABLE.
func (b *Builder) DropTable(table string) Statement {
	return Statement{SQL: "DROP TABLE " + table}
}

// ListTables builds a catalog query returning every user table name.
func (b *Builder) ListTables() Statement {
	return Statement{
		SQL: "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\\_%' ESCAPE '\\' ORDER BY name",
	}
}

// TableInfo builds the PRAGMA returning a table's declared columns.
func (b *Builder) TableInfo(table string) Statement {
	return Statement{SQL: "PRAGMA table_info(" + table + ")"}
}

// AddColumn builds ALTER TABLE ... ADD COLUMN.
func (b *Builder) AddColumn(table string, col schema.Column) Statement {
	return Statement{
		SQL: "ALTER TABLE " + table + " ADD COLUMN " + col.Name + " " + strings.TrimSpace(col.Type),
	}
}

// CreateUniqueIndex builds CREATE UNIQUE INDEX over cols.
func (b *Builder) CreateUniqueIndex(index, table string, cols ...string) Statement {
	return Statement{
		SQL: "CREATE UNIQUE INDEX " + index + " ON " + table + " (" + strings.Join(cols, ", ") + ")",
	}
}

// Insert builds a single-row INSERT with one @placeholder per record key.
// An empty record inserts a row of defaults.
func (b *Builder) Insert(table string, rec record.Record) Statement {
	if rec.Len() == 0 {
		return Statement{SQL: "INSERT INTO " + table + " DEFAULT VALUES"}
	}

	cols := make([]string, 0, rec.Len())
	placeholders := make([]string, 0, rec.Len())
	params := make(Params, 0, rec.Len())
	for name, v := range rec.All() {
		cols = append(cols, name)
		placeholders = append(placeholders, "@"+name)
		params = append(params, sql.Named(name, v))
	}

	return Statement{
		SQL:    "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")",
		Params: params,
	}
}

// BatchInsert builds multi-row INSERT statements for recs.
//
// The column list is the union of all record keys in first-seen order; a
// record lacking a key binds NULL for it. Each placeholder is the column name
// suffixed with "_" and the row's index in recs, so names are unique across
// the whole batch. Rows are split into statements of at most BatchSize rows
// and at most MaxVariables parameters.
func (b *Builder) BatchInsert(table string, recs []record.Record) (Batch, error) {
	if table == "" {
		return Batch{}, ErrEmptyTableName
	}
	if len(recs) == 0 {
		return Batch{}, ErrEmptyRecordSet
	}

	cols := unionKeys(recs)
	if len(cols) == 0 {
		// Nothing to bind; every row takes its defaults.
		stmts := make([]Statement, len(recs))
		for i := range recs {
			stmts[i] = b.Insert(table, recs[i])
		}
		return Batch{Statements: stmts, Rows: len(recs)}, nil
	}

	perStmt := b.batchSize
	if limit := MaxVariables / len(cols); limit < perStmt {
		perStmt = limit
	}

	head := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES "
	batch := Batch{Rows: len(recs)}
	for start := 0; start < len(recs); start += perStmt {
		end := min(start+perStmt, len(recs))

		var sb strings.Builder
		sb.WriteString(head)
		params := make(Params, 0, (end-start)*len(cols))
		for row := start; row < end; row++ {
			if row > start {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			suffix := "_" + strconv.Itoa(row)
			for i, col := range cols {
				if i > 0 {
					sb.WriteString(", ")
				}
				name := col + suffix
				sb.WriteString("@" + name)
				v, _ := recs[row].Get(col)
				params = append(params, sql.Named(name, v))
			}
			sb.WriteByte(')')
		}
		batch.Statements = append(batch.Statements, Statement{SQL: sb.String(), Params: params})
	}
	return batch, nil
}

// unionKeys returns every key used by recs in first-seen order.
func unionKeys(recs []record.Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, rec := range recs {
		for k := range rec.All() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// Update builds UPDATE ... SET col=@col ... WHERE <id>=@<id>.
// A value for the identity column itself is ignored; the lookup id wins.
func (b *Builder) Update(table string, id record.Value, values record.Record) (Statement, error) {
	return b.UpdateWhere(table, values, b.idColumn+" = @"+b.idColumn, Params{sql.Named(b.idColumn, id)})
}

// UpdateWhere builds UPDATE ... SET col=@col ... WHERE <where>.
// The clause must reference values only through placeholders in params, and
// those names must not collide with column names in values.
func (b *Builder) UpdateWhere(table string, values record.Record, where string, params Params) (Statement, error) {
	if table == "" {
		return Statement{}, ErrEmptyTableName
	}

	sets := make([]string, 0, values.Len())
	all := make(Params, 0, values.Len()+len(params))
	for name, v := range values.All() {
		if strings.EqualFold(name, b.idColumn) {
			continue
		}
		sets = append(sets, name+" = @"+name)
		all = append(all, sql.Named(name, v))
	}
	if len(sets) == 0 {
		return Statement{}, ErrEmptyRecordSet
	}
	all = append(all, params...)

	return Statement{
		SQL:    "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + where,
		Params: all,
	}, nil
}

// Delete builds DELETE ... WHERE <id>=@<id>.
func (b *Builder) Delete(table string, id record.Value) (Statement, error) {
	if table == "" {
		return Statement{}, ErrEmptyTableName
	}
	return Statement{
		SQL:    "DELETE FROM " + table + " WHERE " + b.idColumn + " = @" + b.idColumn,
		Params: Params{sql.Named(b.idColumn, id)},
	}, nil
}

// DeleteWhere builds DELETE with a caller-supplied clause.
// The clause must reference values only through placeholders in params.
func (b *Builder) DeleteWhere(table, where string, params Params) Statement {
	return Statement{
		SQL:    "DELETE FROM " + table + " WHERE " + where,
		Params: params,
	}
}

// Select builds SELECT * with an optional caller-supplied WHERE clause.
// The clause is used verbatim and must reference values only through
// placeholders in params.
func (b *Builder) Select(table, where string, params Params) Statement {
	q := "SELECT * FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	return Statement{SQL: q, Params: params}
}

// SelectAll builds SELECT * over the whole table in rowid order.
func (b *Builder) SelectAll(table string) Statement {
	return Statement{SQL: "SELECT * FROM " + table + " ORDER BY rowid"}
}

// SelectByID builds SELECT * ... WHERE <id>=@<id>.
func (b *Builder) SelectByID(table string, id record.Value) Statement {
	return b.Select(table, b.idColumn+" = @"+b.idColumn, Params{sql.Named(b.idColumn, id)})
}

// SelectThrough builds a join through a junction table, returning the rows
// of target linked to the owner row identified by id.
func (b *Builder) SelectThrough(target, junction, targetFK, ownerFK string, id record.Value) Statement {
	return Statement{
		SQL: "SELECT t.* FROM " + target + " AS t JOIN " + junction + " AS j ON j." + targetFK +
			" = t." + b.idColumn + " WHERE j." + ownerFK + " = @owner ORDER BY t." + b.idColumn,
		Params: Params{sql.Named("owner", id)},
	}
}

// EqualsClause builds "a = @a AND b IS NULL ..." from filter, in key order.
func (b *Builder) EqualsClause(filter record.Record) (string, Params) {
	if filter.Len() == 0 {
		return "", nil
	}
	terms := make([]string, 0, filter.Len())
	params := make(Params, 0, filter.Len())
	for name, v := range filter.All() {
		if v.IsNull() {
			terms = append(terms, name+" IS NULL")
			continue
		}
		terms = append(terms, name+" = @"+name)
		params = append(params, sql.Named(name, v))
	}
	return strings.Join(terms, " AND "), params
}
