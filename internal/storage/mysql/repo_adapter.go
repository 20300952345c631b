// This adapter wires the MySQL backend into the storage-agnostic factory.
package mysql

import (
	"context"
	"database/sql"

	"userload/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func fromStorage(cfg storage.Config) Config {
	return Config{DSN: cfg.DSN, User: cfg.User, Password: cfg.Password, Table: cfg.Table}
}

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, fromStorage(cfg))
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterSQLOpener("mysql", func(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
		return openDB(ctx, fromStorage(cfg))
	})
}

// wrappedRepo adapts *mysql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() { w.closeFn() }
