package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-records/internal/query"
	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
	"github.com/nerrad567/gray-logic-records/internal/sqlexec"
)

// Executor runs statements. *sqlexec.Executor satisfies it.
type Executor interface {
	Query(ctx context.Context, stmt query.Statement) ([]record.Record, error)
	Exec(ctx context.Context, stmt query.Statement) (sqlexec.Result, error)
	ExecSequence(ctx context.Context, stmts []query.Statement) (sqlexec.Result, error)
	ExecInTransaction(ctx context.Context, stmts []query.Statement) (sqlexec.Result, error)
	ColumnMetadata(ctx context.Context, table string) (schema.Columns, error)
}

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Store.
type Options struct {
	// IDColumn is the identity column name. Default "Id".
	IDColumn string

	// BatchSize is the rows per multi-row INSERT. Default 1000, max 1000.
	BatchSize int

	// Strict validates every record against the table's declared columns
	// before any statement runs.
	Strict bool

	// Hook is notified after every successful mutation.
	Hook MutationHook

	// Logger receives operation logs. Nil discards them.
	Logger Logger
}

// Internal tables hidden from GetTables and closed to lifecycle operations.
const (
	migrationsTable = "schema_migrations"
	relationsTable  = "table_relations"
	auditTable      = "audit_logs"
)

// Store is the façade over the dynamic table subsystem.
//
// Every public method validates its identifiers before any I/O and holds no
// state between calls: table existence and column metadata are re-read from
// the catalog each time. A Store is safe for concurrent use.
type Store struct {
	exec    Executor
	builder *query.Builder
	strict  bool
	hook    MutationHook
	logger  Logger
	now     func() time.Time
}

// New creates a Store over exec.
func New(exec Executor, opts Options) *Store {
	s := &Store{
		exec: exec,
		builder: query.New(
			query.WithIDColumn(opts.IDColumn),
			query.WithBatchSize(opts.BatchSize),
		),
		strict: opts.Strict,
		hook:   opts.Hook,
		logger: opts.Logger,
		now:    time.Now,
	}
	if s.hook == nil {
		s.hook = noopHook{}
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s
}

// IDColumn returns the identity column name.
func (s *Store) IDColumn() string { return s.builder.IDColumn() }

// Strict reports whether strict schema validation is enabled.
func (s *Store) Strict() bool { return s.strict }

// SetHook replaces the mutation hook. It must be called before the Store
// is shared between goroutines.
func (s *Store) SetHook(h MutationHook) {
	if h == nil {
		h = noopHook{}
	}
	s.hook = h
}

func isInternal(table string) bool {
	return strings.EqualFold(table, migrationsTable) ||
		strings.EqualFold(table, relationsTable) ||
		strings.EqualFold(table, auditTable) ||
		strings.HasPrefix(strings.ToLower(table), "sqlite_")
}

// isIdentityType reports whether decl declares the store's identity column.
func isIdentityType(decl string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(decl), " "), schema.IDColumnType)
}

// checkTable validates a user table name.
func checkTable(table string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if isInternal(table) {
		return fmt.Errorf("%w: %s", ErrReservedTable, table)
	}
	return nil
}

func (s *Store) emit(ctx context.Context, op Op, table string, rows int64, ids ...int64) {
	s.hook.OnMutation(ctx, MutationEvent{
		Op:           op,
		Table:        table,
		RowsAffected: rows,
		IDs:          ids,
		At:           s.now().UTC(),
	})
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	rows, err := s.exec.Query(ctx, s.builder.TableExists(table))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *Store) requireTable(ctx context.Context, table string) error {
	ok, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableNotFound
	}
	return nil
}

// CreateTable creates table with cols in the given order. The identity column
// is appended when cols lacks it.
func (s *Store) CreateTable(ctx context.Context, table string, cols schema.Columns) error {
	const op = "create table"
	if err := checkTable(table); err != nil {
		return opError(op, table, err)
	}
	if err := schema.ValidateColumnTypes(cols); err != nil {
		return opError(op, table, err)
	}
	if id, ok := cols.Find(s.IDColumn()); ok && !isIdentityType(id.Type) {
		return opError(op, table, fmt.Errorf("%w: %s %s", ErrIDColumn, id.Name, id.Type))
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return opError(op, table, err)
	}
	if exists {
		return opError(op, table, ErrTableAlreadyExists)
	}

	if _, err := s.exec.Exec(ctx, s.builder.CreateTable(table, cols)); err != nil {
		return opError(op, table, err)
	}

	s.logger.Info("table created", "table", table, "columns", len(cols))
	s.emit(ctx, OpCreateTable, table, 0)
	return nil
}

// DeleteTable drops table. Relations involving it are removed from the
// registry and many-to-many junction tables are dropped with it.
func (s *Store) DeleteTable(ctx context.Context, table string) error {
	const op = "delete table"
	if err := checkTable(table); err != nil {
		return opError(op, table, err)
	}
	if err := s.requireTable(ctx, table); err != nil {
		return opError(op, table, err)
	}

	before, after, err := s.dropRelationsStatements(ctx, table)
	if err != nil {
		return opError(op, table, err)
	}
	stmts := append(before, s.builder.DropTable(table))
	stmts = append(stmts, after...)

	if _, err := s.exec.ExecInTransaction(ctx, stmts); err != nil {
		return opError(op, table, err)
	}

	s.logger.Info("table dropped", "table", table)
	s.emit(ctx, OpDropTable, table, 0)
	return nil
}

// GetTables returns every user table name in name order.
func (s *Store) GetTables(ctx context.Context) ([]string, error) {
	rows, err := s.exec.Query(ctx, s.builder.ListTables())
	if err != nil {
		return nil, opError("get tables", "", err)
	}
	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		v, _ := row.Get("name")
		name, _ := v.AsText()
		if name == "" || isInternal(name) {
			continue
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// AddColumns appends cols to an existing table in one transaction.
func (s *Store) AddColumns(ctx context.Context, table string, cols schema.Columns) error {
	const op = "add columns"
	if err := checkTable(table); err != nil {
		return opError(op, table, err)
	}
	if len(cols) == 0 {
		return opError(op, table, ErrEmptyRecordSet)
	}
	if err := schema.ValidateColumnTypes(cols); err != nil {
		return opError(op, table, err)
	}
	if cols.Has(s.IDColumn()) {
		return opError(op, table, ErrIDColumn)
	}

	meta, err := s.exec.ColumnMetadata(ctx, table)
	if err != nil {
		return opError(op, table, err)
	}
	if len(meta) == 0 {
		return opError(op, table, ErrTableNotFound)
	}

	stmts := make([]query.Statement, 0, len(cols))
	for _, col := range cols {
		if meta.Has(col.Name) {
			return opError(op, table, fmt.Errorf("%w: %s", schema.ErrDuplicateColumn, col.Name))
		}
		stmts = append(stmts, s.builder.AddColumn(table, col))
	}

	if _, err := s.exec.ExecInTransaction(ctx, stmts); err != nil {
		return opError(op, table, err)
	}

	s.logger.Info("columns added", "table", table, "columns", cols.Names())
	s.emit(ctx, OpAlterTable, table, 0)
	return nil
}

// GetColumnMetadata returns the declared columns of table in table order.
func (s *Store) GetColumnMetadata(ctx context.Context, table string) (schema.Columns, error) {
	const op = "get column metadata"
	if err := checkTable(table); err != nil {
		return nil, opError(op, table, err)
	}
	meta, err := s.exec.ColumnMetadata(ctx, table)
	if err != nil {
		return nil, opError(op, table, err)
	}
	if len(meta) == 0 {
		return nil, opError(op, table, ErrTableNotFound)
	}
	return meta, nil
}

// validateRecords checks keys of every record and, in strict mode, the
// records against the table's columns.
func (s *Store) validateRecords(ctx context.Context, table string, recs ...record.Record) error {
	for i, rec := range recs {
		if err := schema.ValidateRecordKeys(rec); err != nil {
			if len(recs) > 1 {
				return fmt.Errorf("record %d: %w", i, err)
			}
			return err
		}
	}
	if !s.strict {
		return nil
	}

	meta, err := s.exec.ColumnMetadata(ctx, table)
	if err != nil {
		return err
	}
	if len(meta) == 0 {
		return ErrTableNotFound
	}
	for i, rec := range recs {
		if err := schema.ValidateRecordAgainstSchema(rec, meta); err != nil {
			if len(recs) > 1 {
				return fmt.Errorf("record %d: %w", i, err)
			}
			return err
		}
	}
	return nil
}

// AddRecord inserts rec and returns the new row's id.
//
// The table is not checked for existence first; inserting into a missing
// table fails with sqlexec.ErrExecutionFailed.
func (s *Store) AddRecord(ctx context.Context, table string, rec record.Record) (int64, error) {
	const op = "add record"
	if err := checkTable(table); err != nil {
		return 0, opError(op, table, err)
	}
	if err := s.validateRecords(ctx, table, rec); err != nil {
		return 0, opError(op, table, err)
	}

	res, err := s.exec.Exec(ctx, s.builder.Insert(table, rec))
	if err != nil {
		return 0, opError(op, table, err)
	}

	s.emit(ctx, OpInsert, table, res.RowsAffected, res.LastInsertID)
	return res.LastInsertID, nil
}

// AddRecordsInTransaction inserts recs one statement per record inside a
// single transaction. Either every record is stored or none is.
func (s *Store) AddRecordsInTransaction(ctx context.Context, table string, recs []record.Record) (int64, error) {
	const op = "add records in transaction"
	if err := s.checkBulk(ctx, table, recs); err != nil {
		return 0, opError(op, table, err)
	}

	stmts := make([]query.Statement, len(recs))
	for i, rec := range recs {
		stmts[i] = s.builder.Insert(table, rec)
	}

	res, err := s.exec.ExecInTransaction(ctx, stmts)
	if err != nil {
		return 0, opError(op, table, err)
	}

	s.emit(ctx, OpInsert, table, res.RowsAffected)
	return res.RowsAffected, nil
}

// AddRecordsBatch inserts recs with multi-row INSERT statements outside a
// transaction. On failure, statements already run stay applied; each
// statement is itself atomic.
func (s *Store) AddRecordsBatch(ctx context.Context, table string, recs []record.Record) (int64, error) {
	return s.addBatch(ctx, "add records batch", table, recs, false)
}

// AddRecordsBatchInTransaction inserts recs with multi-row INSERT statements
// inside one transaction. Either every record is stored or none is.
func (s *Store) AddRecordsBatchInTransaction(ctx context.Context, table string, recs []record.Record) (int64, error) {
	return s.addBatch(ctx, "add records batch in transaction", table, recs, true)
}

func (s *Store) addBatch(ctx context.Context, op, table string, recs []record.Record, atomic bool) (int64, error) {
	if err := s.checkBulk(ctx, table, recs); err != nil {
		return 0, opError(op, table, err)
	}

	batch, err := s.builder.BatchInsert(table, recs)
	if err != nil {
		return 0, opError(op, table, err)
	}

	run := s.exec.ExecSequence
	if atomic {
		run = s.exec.ExecInTransaction
	}
	res, err := run(ctx, batch.Statements)
	if err != nil {
		if !atomic && res.RowsAffected > 0 {
			s.logger.Warn("batch partially applied",
				"table", table,
				"rows", res.RowsAffected,
				"of", batch.Rows,
			)
			s.emit(ctx, OpInsert, table, res.RowsAffected)
		}
		return res.RowsAffected, opError(op, table, err)
	}

	s.logger.Debug("batch inserted",
		"table", table,
		"rows", res.RowsAffected,
		"statements", len(batch.Statements),
	)
	s.emit(ctx, OpInsert, table, res.RowsAffected)
	return res.RowsAffected, nil
}

func (s *Store) checkBulk(ctx context.Context, table string, recs []record.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrEmptyRecordSet
	}
	return s.validateRecords(ctx, table, recs...)
}

// GetAllRecords returns every row of table in rowid order.
func (s *Store) GetAllRecords(ctx context.Context, table string) ([]record.Record, error) {
	const op = "get all records"
	if err := checkTable(table); err != nil {
		return nil, opError(op, table, err)
	}
	rows, err := s.exec.Query(ctx, s.builder.SelectAll(table))
	if err != nil {
		return nil, opError(op, table, err)
	}
	return rows, nil
}

// GetRecordByID returns the row with the given id. A missing row is not an
// error: ok is false and err is nil.
func (s *Store) GetRecordByID(ctx context.Context, table string, id record.Value) (rec record.Record, ok bool, err error) {
	const op = "get record"
	if err := checkTable(table); err != nil {
		return record.Record{}, false, opError(op, table, err)
	}
	if err := schema.ValidateID(id); err != nil {
		return record.Record{}, false, opError(op, table, err)
	}

	rows, err := s.exec.Query(ctx, s.builder.SelectByID(table, id))
	if err != nil {
		return record.Record{}, false, opError(op, table, err)
	}
	if len(rows) == 0 {
		return record.Record{}, false, nil
	}
	return rows[0], true, nil
}

// FindRecords returns the rows whose columns equal every value in filter.
// A null filter value matches NULL. An empty filter returns every row.
func (s *Store) FindRecords(ctx context.Context, table string, filter record.Record) ([]record.Record, error) {
	const op = "find records"
	if err := checkTable(table); err != nil {
		return nil, opError(op, table, err)
	}
	if err := s.validateRecords(ctx, table, filter); err != nil {
		return nil, opError(op, table, err)
	}

	where, params := s.builder.EqualsClause(filter)
	rows, err := s.exec.Query(ctx, s.builder.Select(table, where, params))
	if err != nil {
		return nil, opError(op, table, err)
	}
	return rows, nil
}

// UpdateRecord sets the columns in values on the row with the given id and
// returns the number of rows changed (0 when the id does not exist). Columns
// not named in values keep their prior values. A value for the identity
// column is ignored.
func (s *Store) UpdateRecord(ctx context.Context, table string, id record.Value, values record.Record) (int64, error) {
	const op = "update record"
	if err := checkTable(table); err != nil {
		return 0, opError(op, table, err)
	}
	if err := schema.ValidateID(id); err != nil {
		return 0, opError(op, table, err)
	}
	if err := s.validateRecords(ctx, table, values); err != nil {
		return 0, opError(op, table, err)
	}

	stmt, err := s.builder.Update(table, id, values)
	if err != nil {
		return 0, opError(op, table, err)
	}
	res, err := s.exec.Exec(ctx, stmt)
	if err != nil {
		return 0, opError(op, table, err)
	}

	if res.RowsAffected > 0 {
		s.emit(ctx, OpUpdate, table, res.RowsAffected, idOf(id)...)
	}
	return res.RowsAffected, nil
}

// DeleteRecord deletes the row with the given id and returns the number of
// rows removed (0 when the id does not exist).
func (s *Store) DeleteRecord(ctx context.Context, table string, id record.Value) (int64, error) {
	const op = "delete record"
	if err := checkTable(table); err != nil {
		return 0, opError(op, table, err)
	}
	if err := schema.ValidateID(id); err != nil {
		return 0, opError(op, table, err)
	}

	stmt, err := s.builder.Delete(table, id)
	if err != nil {
		return 0, opError(op, table, err)
	}
	res, err := s.exec.Exec(ctx, stmt)
	if err != nil {
		return 0, opError(op, table, err)
	}

	if res.RowsAffected > 0 {
		s.emit(ctx, OpDelete, table, res.RowsAffected, idOf(id)...)
	}
	return res.RowsAffected, nil
}

func idOf(v record.Value) []int64 {
	if i, ok := v.AsInt(); ok {
		return []int64{i}
	}
	return nil
}
