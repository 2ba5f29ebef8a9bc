// Package database opens the SQLite file behind the record store and
// manages its internal schema.
//
// Two drivers are supported and selected by Config.Driver:
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo, default)
//   - "sqlite":  modernc.org/sqlite (pure Go)
//
// Both are opened with foreign keys enabled and, when WALMode is set, in
// WAL journal mode. The pool is limited to one connection; callers take a
// dedicated *sql.Conn per operation via DB.Conn.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.NewMigrator(migrations.FS, ".").Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive and cover only internal tables
// (schema_migrations, table_relations). User tables are created at runtime
// by the store package.
package database
