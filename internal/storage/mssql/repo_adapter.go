// This adapter wires the SQL Server backend into the storage factory.
package mssql

import (
	"context"
	"database/sql"

	"userload/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func fromStorage(cfg storage.Config) Config {
	return Config{DSN: cfg.DSN, User: cfg.User, Password: cfg.Password, Table: cfg.Table}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, fromStorage(cfg))
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterSQLOpener("mssql", func(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
		return openDB(ctx, fromStorage(cfg))
	})
}
