// Package sqlite implements repository.UserRepository on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no C compiler, no CGo, and the same
// binary runs everywhere Go runs. The driver registers itself with
// database/sql under the name "sqlite".
//
// QUERY GATEWAY:
// Every statement in this package goes through exec/query/queryRow below.
// They bind positional parameters (never string-built values) and turn driver
// errors into apperror kinds:
//   - UNIQUE constraint violations → apperror.ErrConflict
//   - anything else                → apperror.ErrQuery (generic "query failed")
//
// There are no retries. The caller sees the failure once.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/repository/migrations"
)

// DefaultPoolSize is the connection limit used when none is configured.
const DefaultPoolSize = 10

// DB wraps a sql.DB connection pool. It is created once at startup,
// injected into the service, and closed (drained) at shutdown.
type DB struct {
	conn *sql.DB
}

// result is what a mutating statement reports back.
type result struct {
	RowsAffected int64
	LastInsertID int64
}

// New opens the pool, verifies it, and applies pending migrations.
//
// dbPath examples:
//   - "data/usersdot.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// POOL SIZE:
// database/sql queues callers when all poolSize connections are busy; it never
// rejects them. An in-memory database is pinned to a single connection,
// because each new SQLite connection to ":memory:" would see an empty database.
func New(ctx context.Context, dbPath string, poolSize int) (*DB, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	dsn := dbPath
	inMemory := dbPath == ":memory:"
	if !inMemory {
		// busy_timeout makes concurrent writers wait instead of failing with
		// SQLITE_BUSY; WAL lets readers proceed during a write.
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if inMemory {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(poolSize)
		conn.SetMaxIdleConns(poolSize)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close drains the pool. In-flight statements finish first.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the store is reachable (used by /healthz).
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return apperror.QueryFailed("ping", err)
	}
	return nil
}

// Migrate applies pending migrations. New already does this; the method is
// exported for the `migrate` CLI command.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, migrations.SQLite())
	if err != nil {
		return 0, fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	return len(results), nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.Migrate(ctx)
	return err
}

func (db *DB) exec(ctx context.Context, op, query string, args ...any) (result, error) {
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return result{}, wrapErr(op, err)
	}

	var out result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return result{}, apperror.QueryFailed(op, err)
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return result{}, apperror.QueryFailed(op, err)
	}
	return out, nil
}

// query runs a SELECT returning many rows. The caller must close the rows.
func (db *DB) query(ctx context.Context, op, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return rows, nil
}

// queryRow runs a SELECT returning at most one row and scans it into dest.
// sql.ErrNoRows is returned unwrapped so callers can map it to NotFound.
func (db *DB) queryRow(ctx context.Context, op, query string, args []any, dest ...any) error {
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return wrapErr(op, err)
	}
	return nil
}

func wrapErr(op string, err error) error {
	if isUniqueViolation(err) {
		return &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "unique constraint violated",
			Cause:   err,
		}
	}
	return apperror.QueryFailed(op, err)
}

// isUniqueViolation reports whether err is SQLITE_CONSTRAINT_UNIQUE.
// The primary result code is checked as well in case extended codes are off.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
