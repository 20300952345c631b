// Package sqlite implements a SQLite-backed storage.Repository on top of
// sqldb. SQLite has no bulk-load API like Postgres COPY; a transaction per
// batch keeps performance acceptable for moderate volumes.
package sqlite

import (
	"context"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"userload/internal/domain"
	"userload/internal/storage/sqldb"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:users.db?cache=shared"
	//   "users.db"
	//   ":memory:"
	DSN string

	// Table is the target table name, e.g. "users". "main.users" is accepted.
	Table string
}

// Dialect is the SQLite flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:        "sqlite",
	Driver:      "sqlite",
	Placeholder: func(int) string { return "?" },
	Quote:       quote,
	ColumnsQuery: func(schema, table string) (string, []any) {
		if schema == "" {
			return "SELECT name FROM pragma_table_info(?)", []any{table}
		}
		return "SELECT name FROM pragma_table_info(?, ?)", []any{table, schema}
	},
	TruncateSQL: func(quoted string) string { return "DELETE FROM " + quoted },
	Classify:    classify,
	// SQLite has no DATE type; ISO text keeps date() comparisons working.
	Args: func(rec domain.CleanRecord) []any { return rec.Values() },
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	r, closeFn, err := sqldb.Open(ctx, Dialect, cfg.DSN, cfg.Table)
	if err != nil {
		return nil, nil, err
	}
	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = r.DB().ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return &Repository{Repository: r}, closeFn, nil
}

func quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func classify(err error) sqldb.ErrClass {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return sqldb.Fatal
	}
	code := se.Code()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE constraint failed"):
		return sqldb.Duplicate
	case code&0xff == sqlite3.SQLITE_CONSTRAINT,
		code&0xff == sqlite3.SQLITE_MISMATCH,
		code&0xff == sqlite3.SQLITE_TOOBIG:
		return sqldb.RowRejected
	default:
		return sqldb.Fatal
	}
}
