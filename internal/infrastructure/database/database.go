package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure-Go SQLite driver, registered as "sqlite"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPure is modernc.org/sqlite, for builds without cgo.
	DriverPure = "sqlite"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	msPerSecond = 1000

	// connectionTimeout bounds the initial ping.
	connectionTimeout = 5 * time.Second

	connMaxIdleTime = 30 * time.Minute
)

// ErrUnknownDriver is returned when Config.Driver names no supported driver.
var ErrUnknownDriver = errors.New("database: unknown driver")

// DB wraps a sql.DB opened on a single SQLite file.
//
// Record-store operations take one *sql.Conn per call via Conn, so DB
// satisfies sqlexec.ConnProvider directly.
type DB struct {
	*sql.DB
	path   string
	driver string
}

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Driver is DriverCGO (default) or DriverPure.
	Driver string

	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging so readers don't block the writer.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// dsn builds the connection string for the selected driver. Both enable
// foreign keys, which ON DELETE clauses on relation columns depend on.
func (c Config) dsn() (string, error) {
	busy := c.BusyTimeout * msPerSecond
	switch c.Driver {
	case "", DriverCGO:
		// See: https://github.com/mattn/go-sqlite3#connection-string
		s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, busy)
		if c.WALMode {
			s += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
		return s, nil
	case DriverPure:
		// See: https://pkg.go.dev/modernc.org/sqlite#Driver.Open
		s := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", c.Path, busy)
		if c.WALMode {
			s += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
}

// Open opens (creating if needed) the SQLite file described by cfg and
// verifies it with a ping bounded by ctx and connectionTimeout.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer. Every store call takes its own
	// connection, so calls queue here rather than on SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	db := &DB{DB: sqlDB, path: cfg.Path, driver: driver}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The ping created the file; restrict it to the owner.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // best effort

	return db, nil
}

// Close closes the database. It is safe to call on a nil-backed DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// HealthCheck runs a trivial query to confirm the database is usable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
