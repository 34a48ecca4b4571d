// Package postgres implements repository.UserRepository on PostgreSQL with a
// pgx connection pool.
//
// It mirrors the sqlite package: the same Query Gateway helpers (exec, query,
// queryRow) bind $n parameters and convert driver errors into apperror kinds.
// Unique violations (SQLSTATE 23505) become apperror.ErrConflict.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/repository/migrations"
)

const uniqueViolation = "23505"

// DB owns the pgx pool for the lifetime of the process.
type DB struct {
	pool *pgxpool.Pool
}

// New parses dsn, opens a pool of at most poolSize connections, pings it and
// applies pending migrations. Callers beyond poolSize wait for a free
// connection; pgxpool does not reject them.
func New(ctx context.Context, dsn string, poolSize int) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	db := &DB{pool: pool}
	if _, err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// Close drains the pool, waiting for acquired connections to be released.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return apperror.QueryFailed("ping", err)
	}
	return nil
}

// Migrate applies pending goose migrations through a database/sql view of
// the pool and returns how many were applied.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.Postgres())
	if err != nil {
		return 0, fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	return len(results), nil
}

func (db *DB) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return tag.RowsAffected(), nil
}

func (db *DB) query(ctx context.Context, op, query string, args ...any) (pgx.Rows, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return rows, nil
}

// queryRow scans a single row into dest. pgx.ErrNoRows is passed through.
func (db *DB) queryRow(ctx context.Context, op, query string, args []any, dest ...any) error {
	err := db.pool.QueryRow(ctx, query, args...).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return wrapErr(op, err)
	}
	return nil
}

func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "unique constraint violated",
			Cause:   err,
		}
	}
	return apperror.QueryFailed(op, err)
}
