package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-records/internal/query"
	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// ConnProvider hands out dedicated connections. *sql.DB and
// *database.DB both satisfy it.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Logger defines the logging interface used by the Executor.
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

// Result summarises the effect of one or more commands.
type Result struct {
	// RowsAffected is the total across all statements run.
	RowsAffected int64

	// LastInsertID is the rowid of the last row inserted, or 0.
	LastInsertID int64
}

func (r Result) add(o Result) Result {
	r.RowsAffected += o.RowsAffected
	if o.LastInsertID != 0 {
		r.LastInsertID = o.LastInsertID
	}
	return r
}

// execer is satisfied by *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// catalog builds the metadata statements. It never touches identity settings.
var catalog = query.New()

// Executor runs statements with per-call connections.
// It holds no mutable state besides its logger and is safe for concurrent use.
type Executor struct {
	db     ConnProvider
	logger Logger
}

// New creates an Executor drawing connections from db.
func New(db ConnProvider) *Executor {
	return &Executor{db: db, logger: noopLogger{}}
}

// SetLogger sets the logger used for statement tracing.
func (e *Executor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

func (e *Executor) conn(ctx context.Context, op string) (*sql.Conn, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, execError(op, "", fmt.Errorf("acquiring connection: %w", err))
	}
	return conn, nil
}

// Query runs a read statement and returns every row as a record.
// Rows and connection are closed before Query returns. An empty result is a
// non-nil empty slice.
func (e *Executor) Query(ctx context.Context, stmt query.Statement) ([]record.Record, error) {
	conn, err := e.conn(ctx, "query")
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // release back to the pool

	e.logger.Debug("sql query", "sql", stmt.SQL, "params", len(stmt.Params))

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return nil, execError("query", stmt.SQL, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, execError("query", stmt.SQL, err)
	}
	return recs, nil
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}
	names := make([]string, len(types))
	decls := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		decls[i] = ct.DatabaseTypeName()
	}

	out := make([]record.Record, 0)
	raw := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec := record.New()
		for i, name := range names {
			rec.Set(name, record.FromDriver(raw[i], decls[i]))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Exec runs one mutating statement.
func (e *Executor) Exec(ctx context.Context, stmt query.Statement) (Result, error) {
	conn, err := e.conn(ctx, "exec")
	if err != nil {
		return Result{}, err
	}
	defer conn.Close() //nolint:errcheck // release back to the pool

	return e.exec(ctx, conn, stmt)
}

func (e *Executor) exec(ctx context.Context, x execer, stmt query.Statement) (Result, error) {
	e.logger.Debug("sql exec", "sql", stmt.SQL, "params", len(stmt.Params))

	res, err := x.ExecContext(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return Result{}, execError("exec", stmt.SQL, err)
	}

	var out Result
	// SQLite always supports both; a driver that does not reports 0.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// ExecSequence runs stmts in order on one connection without a transaction.
// It stops at the first failure; statements before it stay applied and their
// combined result is returned alongside the error.
func (e *Executor) ExecSequence(ctx context.Context, stmts []query.Statement) (Result, error) {
	if len(stmts) == 0 {
		return Result{}, nil
	}

	conn, err := e.conn(ctx, "exec")
	if err != nil {
		return Result{}, err
	}
	defer conn.Close() //nolint:errcheck // release back to the pool

	var total Result
	for _, stmt := range stmts {
		r, err := e.exec(ctx, conn, stmt)
		if err != nil {
			return total, err
		}
		total = total.add(r)
	}
	return total, nil
}

// ExecInTransaction runs stmts in order inside one transaction on one
// connection and commits once after the last statement.
//
// On any failure the transaction is rolled back before the error is
// returned. The error matches ErrTransactionFailed and, for statement
// failures, ErrExecutionFailed and the engine cause.
func (e *Executor) ExecInTransaction(ctx context.Context, stmts []query.Statement) (Result, error) {
	if len(stmts) == 0 {
		return Result{}, nil
	}

	conn, err := e.conn(ctx, "begin")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer conn.Close() //nolint:errcheck // release back to the pool

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransactionFailed, execError("begin", "", err))
	}

	var total Result
	for i, stmt := range stmts {
		r, err := e.exec(ctx, tx, stmt)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
			}
			e.logger.Warn("transaction rolled back",
				"statement", i+1,
				"statements", len(stmts),
				"error", err,
			)
			return Result{}, fmt.Errorf("%w: statement %d of %d: %w", ErrTransactionFailed, i+1, len(stmts), err)
		}
		total = total.add(r)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransactionFailed, execError("commit", "", err))
	}
	return total, nil
}

// ColumnMetadata returns the declared columns of table in table order.
// A table that does not exist yields an empty set, not an error.
func (e *Executor) ColumnMetadata(ctx context.Context, table string) (schema.Columns, error) {
	if err := schema.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	stmt := catalog.TableInfo(table)

	conn, err := e.conn(ctx, "metadata")
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // release back to the pool

	rows, err := conn.QueryContext(ctx, stmt.SQL)
	if err != nil {
		return nil, execError("metadata", stmt.SQL, err)
	}
	defer rows.Close()

	cols := schema.Columns{}
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, execError("metadata", stmt.SQL, fmt.Errorf("scanning column: %w", err))
		}
		cols = append(cols, schema.Column{Name: name, Type: decl.String})
	}
	if err := rows.Err(); err != nil {
		return nil, execError("metadata", stmt.SQL, err)
	}
	return cols, nil
}
