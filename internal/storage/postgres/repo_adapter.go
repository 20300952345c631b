// This adapter wires the Postgres backend into the storage-agnostic factory by
// registering a constructor at init time. The CLI (cmd/userload) obtains a
// Repository via storage.New(...) without importing this package directly.
//
// It also registers a database/sql opener so the schema bootstrap can run
// migrations through pgx's stdlib bridge.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/stdlib"

	"userload/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func fromStorage(cfg storage.Config) Config {
	return Config{DSN: cfg.DSN, User: cfg.User, Password: cfg.Password, Table: cfg.Table}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		if cfg.Table == "" {
			return nil, errors.New("postgres: table is required")
		}
		r, closeFn, err := newRepository(ctx, fromStorage(cfg))
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterSQLOpener("postgres", func(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
		pcfg, err := poolConfig(fromStorage(cfg))
		if err != nil {
			return nil, err
		}
		db := stdlib.OpenDB(*pcfg.ConnConfig)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	})
}
