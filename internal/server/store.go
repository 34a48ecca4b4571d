package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/usersdot/internal/config"
	"github.com/sakif/usersdot/internal/repository"
	"github.com/sakif/usersdot/internal/repository/postgres"
	sqliteRepo "github.com/sakif/usersdot/internal/repository/sqlite"
)

// Store is a user repository that owns a connection pool.
type Store interface {
	repository.UserRepository
	Migrate(ctx context.Context) (int, error)
	Close() error
}

// OpenStore opens the configured backend, applies pending migrations and
// returns it ready for use. The caller closes it.
func OpenStore(ctx context.Context, cfg config.Database) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			// Like `mkdir -p` for the database directory.
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(ctx, cfg.SQLitePath, cfg.PoolSize)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DSN, cfg.PoolSize)
		if err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
