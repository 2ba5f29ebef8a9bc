// Package store is the façade over the dynamic table subsystem: tables
// defined at runtime, loosely-typed records, bulk inserts and ad-hoc
// relations between tables.
//
// A Store validates every identifier before generating SQL, builds
// statements with the query package and runs them through an Executor
// (normally *sqlexec.Executor). Tables move through
//
//	Absent → Created → (Empty ⇄ Populated) → Absent
//
// and their state is read from the SQLite catalog on every call, never cached.
//
// # Failures
//
// Every error is an *OpError naming the operation and table. Use errors.Is
// against the wrapped sentinels:
//
//	_, err := st.AddRecordsBatchInTransaction(ctx, "Buildings", recs)
//	switch {
//	case errors.Is(err, schema.ErrInvalidIdentifier):
//	case errors.Is(err, sqlexec.ErrTransactionFailed):
//	    // rolled back, nothing stored
//	}
//
// Looking up a missing id is not a failure: GetRecordByID returns ok=false.
//
// # Notifications
//
// A MutationHook passed in Options is called once after every successful
// mutating call. The notify package provides a hook that fans events out
// to subscribers, MQTT and InfluxDB.
package store
