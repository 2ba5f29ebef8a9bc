package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-records/internal/query"
	"github.com/nerrad567/gray-logic-records/internal/record"
)

func newMock(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func newSQLite(t *testing.T) *Executor {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "exec.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func stmt(q string, params ...sql.NamedArg) query.Statement {
	return query.Statement{SQL: q, Params: params}
}

func TestExec_ReturnsResult(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectExec("INSERT INTO T (Name) VALUES (@Name)").
		WithArgs(sql.Named("Name", "A")).
		WillReturnResult(sqlmock.NewResult(7, 1))

	res, err := exec.Exec(context.Background(), stmt("INSERT INTO T (Name) VALUES (@Name)", sql.Named("Name", record.Text("A"))))
	require.NoError(t, err)
	assert.Equal(t, Result{RowsAffected: 1, LastInsertID: 7}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExec_WrapsEngineError(t *testing.T) {
	exec, mock := newMock(t)
	cause := errors.New("no such table: T")

	mock.ExpectExec("DELETE FROM T").WillReturnError(cause)

	_, err := exec.Exec(context.Background(), stmt("DELETE FROM T"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, cause)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "DELETE FROM T", execErr.SQL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_MaterialisesRows(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectQuery("SELECT * FROM T").
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "Height"}).
			AddRow(int64(1), "A", 1.5).
			AddRow(int64(2), "B", nil))

	recs, err := exec.Query(context.Background(), stmt("SELECT * FROM T"))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"Id", "Name", "Height"}, recs[0].Keys())
	name, _ := recs[1].Get("Name")
	assert.True(t, name.Equal(record.Text("B")))
	height, _ := recs[1].Get("Height")
	assert.True(t, height.IsNull())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_EmptyResultIsNotNil(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectQuery("SELECT * FROM T").WillReturnRows(sqlmock.NewRows([]string{"Id"}))

	recs, err := exec.Query(context.Background(), stmt("SELECT * FROM T"))
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestExecInTransaction_CommitsOnce(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO T (N) VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO T (N) VALUES (2)").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	res, err := exec.ExecInTransaction(context.Background(), []query.Statement{
		stmt("INSERT INTO T (N) VALUES (1)"),
		stmt("INSERT INTO T (N) VALUES (2)"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected)
	assert.Equal(t, int64(2), res.LastInsertID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecInTransaction_RollsBackBeforeReturning(t *testing.T) {
	exec, mock := newMock(t)
	cause := errors.New("table T has no column named Bogus")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO T (N) VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO T (Bogus) VALUES (2)").WillReturnError(cause)
	mock.ExpectRollback()

	_, err := exec.ExecInTransaction(context.Background(), []query.Statement{
		stmt("INSERT INTO T (N) VALUES (1)"),
		stmt("INSERT INTO T (Bogus) VALUES (2)"),
		stmt("INSERT INTO T (N) VALUES (3)"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "statement 2 of 3")

	// The third statement was never sent and no commit happened.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecInTransaction_BeginFailure(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err := exec.ExecInTransaction(context.Background(), []query.Statement{stmt("DELETE FROM T")})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecInTransaction_CommitFailure(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM T").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	_, err := exec.ExecInTransaction(context.Background(), []query.Statement{stmt("DELETE FROM T")})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecInTransaction_Empty(t *testing.T) {
	exec, mock := newMock(t)

	res, err := exec.ExecInTransaction(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecSequence_StopsAtFirstFailure(t *testing.T) {
	exec, mock := newMock(t)

	mock.ExpectExec("A").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("B").WillReturnError(errors.New("constraint failed"))

	res, err := exec.ExecSequence(context.Background(), []query.Statement{stmt("A"), stmt("B"), stmt("C")})
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.NotErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, int64(2), res.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnMetadata_RejectsBadIdentifier(t *testing.T) {
	exec, mock := newMock(t)

	_, err := exec.ColumnMetadata(context.Background(), "T; DROP TABLE x")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_EndToEnd(t *testing.T) {
	ctx := context.Background()
	exec := newSQLite(t)
	b := query.New()

	_, err := exec.Exec(ctx, stmt("CREATE TABLE Buildings (Name TEXT, Height REAL, Plan BLOB, Id INTEGER PRIMARY KEY AUTOINCREMENT)"))
	require.NoError(t, err)

	rec := record.New()
	rec.Set("Name", record.Text("Shard"))
	rec.Set("Height", record.Real(309.6))
	rec.Set("Plan", record.Blob([]byte{0x01, 0x02}))

	res, err := exec.Exec(ctx, b.Insert("Buildings", rec))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LastInsertID)

	got, err := exec.Query(ctx, b.SelectByID("Buildings", record.Int(res.LastInsertID)))
	require.NoError(t, err)
	require.Len(t, got, 1)

	name, _ := got[0].Get("Name")
	assert.True(t, name.Equal(record.Text("Shard")), "Name = %v", name)
	plan, _ := got[0].Get("Plan")
	assert.True(t, plan.Equal(record.Blob([]byte{0x01, 0x02})), "Plan = %v", plan)
	id, _ := got[0].Get("Id")
	assert.True(t, id.Equal(record.Int(1)), "Id = %v", id)

	cols, err := exec.ColumnMetadata(ctx, "Buildings")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Height", "Plan", "Id"}, cols.Names())
	assert.Equal(t, "REAL", cols[1].Type)

	missing, err := exec.ColumnMetadata(ctx, "Nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSQLite_TransactionLeavesNoPartialRows(t *testing.T) {
	ctx := context.Background()
	exec := newSQLite(t)
	b := query.New()

	_, err := exec.Exec(ctx, b.CreateTable("T", nil))
	require.NoError(t, err)
	_, err = exec.Exec(ctx, stmt("ALTER TABLE T ADD COLUMN Name TEXT"))
	require.NoError(t, err)

	good := record.New()
	good.Set("Name", record.Text("ok"))
	bad := record.New()
	bad.Set("Missing", record.Text("x"))

	_, err = exec.ExecInTransaction(ctx, []query.Statement{b.Insert("T", good), b.Insert("T", bad)})
	require.ErrorIs(t, err, ErrTransactionFailed)

	rows, err := exec.Query(ctx, b.Select("T", "", nil))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLite_BatchPlaceholders(t *testing.T) {
	ctx := context.Background()
	exec := newSQLite(t)
	b := query.New(query.WithBatchSize(2))

	_, err := exec.Exec(ctx, stmt("CREATE TABLE T (Name TEXT, Name1 TEXT, Id INTEGER PRIMARY KEY AUTOINCREMENT)"))
	require.NoError(t, err)

	recs := make([]record.Record, 12)
	for i := range recs {
		r := record.New()
		r.Set("Name", record.Text(fmt.Sprintf("n%d", i)))
		r.Set("Name1", record.Text("x"))
		recs[i] = r
	}
	batch, err := b.BatchInsert("T", recs)
	require.NoError(t, err)
	require.Len(t, batch.Statements, 6)

	res, err := exec.ExecInTransaction(ctx, batch.Statements)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.RowsAffected)

	rows, err := exec.Query(ctx, b.Select("T", "", nil))
	require.NoError(t, err)
	require.Len(t, rows, 12)
	for i, r := range rows {
		name, _ := r.Get("Name")
		assert.True(t, name.Equal(record.Text(fmt.Sprintf("n%d", i))), "row %d Name = %v", i, name)
		other, _ := r.Get("Name1")
		assert.True(t, other.Equal(record.Text("x")), "row %d Name1 = %v", i, other)
	}
}
