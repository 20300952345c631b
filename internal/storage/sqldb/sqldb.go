// Package sqldb is the database/sql half of the storage layer. SQLite, MySQL
// and SQL Server share one Repository here and differ only in their Dialect:
// placeholder style, identifier quoting, catalog lookup and error codes.
//
// Inserts run inside a single transaction per batch with a prepared INSERT;
// a row refused for its data is recorded and the transaction carries on, so
// one bad row never costs its batch.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"userload/internal/domain"
	"userload/internal/storage"
)

// ErrClass tells the Repository how to treat a failed INSERT.
type ErrClass int

const (
	// Fatal errors abort the load.
	Fatal ErrClass = iota
	// RowRejected errors are attributed to the row and skipped.
	RowRejected
	// Duplicate is a RowRejected caused by the user_id key.
	Duplicate
)

// Dialect captures what differs between database/sql backends.
type Dialect struct {
	// Kind is the storage kind, e.g. "sqlite".
	Kind string
	// Driver is the database/sql driver name.
	Driver string
	// Placeholder renders the i-th (1-based) bind parameter.
	Placeholder func(i int) string
	// Quote quotes one identifier segment.
	Quote func(ident string) string
	// ColumnsQuery returns the catalog query listing a table's columns and
	// its arguments. schema is empty for an unqualified table.
	ColumnsQuery func(schema, table string) (string, []any)
	// TruncateSQL empties a (quoted) table.
	TruncateSQL func(quoted string) string
	// Classify maps a failed INSERT to an ErrClass.
	Classify func(err error) ErrClass
	// Args renders a record as INSERT arguments in domain.Columns order.
	Args func(rec domain.CleanRecord) []any
}

// Repository implements storage.Repository over database/sql.
type Repository struct {
	db     *sql.DB
	d      Dialect
	schema string
	name   string
}

// Open opens and pings dsn with d.Driver and returns a Repository plus a
// Close function for cleanup.
func Open(ctx context.Context, d Dialect, dsn, table string) (*Repository, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("%s: DSN must not be empty", d.Kind)
	}
	if err := CheckTable(d.Kind, table); err != nil {
		return nil, nil, err
	}
	db, err := OpenDB(ctx, d.Driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", d.Kind, err)
	}
	closeFn := func() { db.Close() }
	return New(db, d, table), closeFn, nil
}

// OpenDB opens dsn with driver and pings it.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := Connect(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Connect pings db, closing it on failure.
func Connect(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// New wraps an open handle and limits it to one connection.
func New(db *sql.DB, d Dialect, table string) *Repository {
	// One connection keeps TRUNCATE, INSERT and the queries on one session;
	// for in-memory SQLite it is also the only way they see the same data.
	db.SetMaxOpenConns(1)
	schema, name := SplitName(table)
	return &Repository{db: db, d: d, schema: schema, name: name}
}

// CheckTable rejects a table name that has no table segment.
func CheckTable(kind, table string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("%s: table is required", kind)
	}
	if _, name := SplitName(table); name == "" {
		return fmt.Errorf("%s: invalid table name %q", kind, table)
	}
	return nil
}

// SplitName splits "schema.table" on its last dot.
func SplitName(table string) (schema, name string) {
	table = strings.TrimSpace(table)
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return strings.TrimSpace(table[:i]), strings.TrimSpace(table[i+1:])
	}
	return "", table
}

func (r *Repository) Kind() string { return r.d.Kind }

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) quotedTable() string {
	if r.schema == "" {
		return r.d.Quote(r.name)
	}
	return r.d.Quote(r.schema) + "." + r.d.Quote(r.name)
}

func (r *Repository) Columns(ctx context.Context) ([]string, error) {
	q, args := r.d.ColumnsQuery(r.schema, r.name)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: list columns: %w", r.d.Kind, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (r *Repository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.d.TruncateSQL(r.quotedTable())); err != nil {
		return fmt.Errorf("%s: truncate: %w", r.d.Kind, err)
	}
	return nil
}

func (r *Repository) insertSQL() string {
	cols := make([]string, len(domain.Columns))
	ph := make([]string, len(domain.Columns))
	for i, c := range domain.Columns {
		cols[i] = r.d.Quote(c)
		ph[i] = r.d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.quotedTable(), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// InsertRecords inserts recs in one transaction with a prepared statement.
func (r *Repository) InsertRecords(ctx context.Context, recs []domain.CleanRecord) (int64, []storage.RowFailure, error) {
	if len(recs) == 0 {
		return 0, nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: begin tx: %w", r.d.Kind, err)
	}
	stmt, err := tx.PrepareContext(ctx, r.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return 0, nil, fmt.Errorf("%s: prepare insert: %w", r.d.Kind, err)
	}
	defer stmt.Close()

	var (
		inserted int64
		fails    []storage.RowFailure
	)
	for _, rec := range recs {
		_, err := stmt.ExecContext(ctx, r.d.Args(rec)...)
		if err == nil {
			inserted++
			continue
		}
		switch r.d.Classify(err) {
		case Duplicate:
			fails = append(fails, storage.RowFailure{UserID: rec.UserID, Line: rec.Line,
				Err: fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)})
		case RowRejected:
			fails = append(fails, storage.RowFailure{UserID: rec.UserID, Line: rec.Line,
				Err: fmt.Errorf("%w: %v", storage.ErrRowRejected, err)})
		default:
			_ = tx.Rollback()
			return 0, nil, fmt.Errorf("%s: insert user_id=%d: %w", r.d.Kind, rec.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("%s: commit: %w", r.d.Kind, err)
	}
	return inserted, fails, nil
}

// Query runs sql and materializes the result. Driver byte slices become
// strings so results print and compare naturally.
func (r *Repository) Query(ctx context.Context, sql string) (*storage.Rows, error) {
	rows, err := r.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &storage.Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	return out, rows.Err()
}

func (r *Repository) Exec(ctx context.Context, sql string) (int64, error) {
	res, err := r.db.ExecContext(ctx, sql)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the handle. Backend adapters usually wrap this with the
// close function returned by Open.
func (r *Repository) Close() { _ = r.db.Close() }

var _ storage.Repository = (*Repository)(nil)
