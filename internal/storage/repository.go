// Package storage defines the backend-agnostic contract for the users table
// and the Loader that writes CleanRecords through it.
//
// Concrete backends (postgres, sqlite, mysql, mssql) live in subpackages and
// register a Factory at init time; callers obtain a Repository via New and
// never import a driver directly. Import userload/internal/storage/all to
// enable every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"userload/internal/domain"
)

var (
	// ErrTableMissing means the destination table does not exist.
	ErrTableMissing = errors.New("destination table does not exist")
	// ErrSchemaMismatch means the destination table lacks an expected column.
	ErrSchemaMismatch = errors.New("destination schema mismatch")
	// ErrDuplicateKey marks a row rejected by a primary-key/unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrRowRejected marks a row rejected by the database for its data.
	ErrRowRejected = errors.New("row rejected")
)

// Config carries connection and destination settings for a backend.
type Config struct {
	// Kind selects the backend: "postgres", "sqlite", "mysql" or "mssql".
	Kind string
	// DSN is the backend connection string.
	DSN string
	// User and Password override credentials in DSN when non-empty.
	User     string
	Password string
	// Table is the destination table, optionally schema-qualified.
	Table string
}

// Rows is a fully materialized query result.
type Rows struct {
	Columns []string
	Values  [][]any
}

// RowFailure reports one CleanRecord the database refused.
type RowFailure struct {
	UserID int64
	Line   int
	Err    error
}

func (f RowFailure) Error() string {
	return fmt.Sprintf("user_id=%d line=%d: %v", f.UserID, f.Line, f.Err)
}

func (f RowFailure) Unwrap() error { return f.Err }

// Repository is the minimal surface the loader and query runner need.
type Repository interface {
	// Kind returns the backend name; it doubles as the SQL dialect.
	Kind() string
	// Columns lists the destination table's column names. An empty result
	// means the table does not exist.
	Columns(ctx context.Context) ([]string, error)
	// Truncate removes every row from the destination table.
	Truncate(ctx context.Context) error
	// InsertRecords inserts recs into the destination table. Rows refused for
	// their data are returned as failures and do not stop the remaining rows;
	// a non-nil error is fatal (connection loss, missing relation, ...).
	InsertRecords(ctx context.Context, recs []domain.CleanRecord) (int64, []RowFailure, error)
	// Query runs a read statement and materializes its result.
	Query(ctx context.Context, sql string) (*Rows, error)
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string) (int64, error)
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
