// Package sqlexec runs SQL statements against SQLite with connection
// lifetimes scoped to a single call.
//
// Every operation acquires its own *sql.Conn from a ConnProvider and
// releases it before returning, including on error paths. Query results are
// fully materialised as records so no cursor outlives the call.
//
// ExecInTransaction applies statements strictly in order on one connection
// and commits once. On the first failure it rolls back and returns an error
// matching both ErrTransactionFailed and ErrExecutionFailed:
//
//	_, err := exec.ExecInTransaction(ctx, stmts)
//	if errors.Is(err, sqlexec.ErrTransactionFailed) {
//	    // nothing from stmts was applied
//	}
package sqlexec
