// Package postgres implements the users-table repository on pgx v5. Batches
// are written with COPY; when COPY rejects a batch for its data the batch is
// replayed row by row so one bad row does not sink its neighbours.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"userload/internal/domain"
	"userload/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string // libpq URL or key=value string
	User     string // overrides the DSN user when set
	Password string // overrides the DSN password when set
	Table    string // optionally schema-qualified, e.g. "public.users"
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewRepository connects, verifies the server answers, and returns a close
// function for cleanup. The pool holds a single connection: the loader is
// sequential and one session keeps TRUNCATE and COPY ordered.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	table := splitFQN(cfg.Table)
	if len(table) == 0 {
		return nil, nil, fmt.Errorf("postgres: invalid table name %q", cfg.Table)
	}
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, table: table}, closeFn, nil
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.User != "" {
		pcfg.ConnConfig.User = cfg.User
	}
	if cfg.Password != "" {
		pcfg.ConnConfig.Password = cfg.Password
	}
	pcfg.MaxConns = 1
	return pcfg, nil
}

func (r *Repository) Kind() string { return "postgres" }

// Columns reads the destination's columns from information_schema. A bare
// table name resolves against current_schema().
func (r *Repository) Columns(ctx context.Context) ([]string, error) {
	var schema *string
	name := r.table[len(r.table)-1]
	if len(r.table) > 1 {
		s := r.table[len(r.table)-2]
		schema = &s
	}
	rows, err := r.pool.Query(ctx, `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = COALESCE($1::text, current_schema())
  AND table_name = $2
ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Truncate empties the destination table.
func (r *Repository) Truncate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE "+r.table.Sanitize())
	return err
}

// InsertRecords COPYs recs into the destination table.
func (r *Repository) InsertRecords(ctx context.Context, recs []domain.CleanRecord) (int64, []storage.RowFailure, error) {
	if len(recs) == 0 {
		return 0, nil, nil
	}
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		rows[i] = rec.DateValues()
	}
	n, err := r.pool.CopyFrom(ctx, r.table, domain.Columns, pgx.CopyFromRows(rows))
	if err == nil {
		return n, nil, nil
	}
	if !isRowError(err) {
		return n, nil, fmt.Errorf("copy into %s: %w", r.table.Sanitize(), err)
	}
	// COPY is all-or-nothing; nothing from this batch landed.
	return r.insertEach(ctx, recs)
}

func (r *Repository) insertEach(ctx context.Context, recs []domain.CleanRecord) (int64, []storage.RowFailure, error) {
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)",
		r.table.Sanitize(), strings.Join(mapIdent(domain.Columns), ", "))

	var (
		n     int64
		fails []storage.RowFailure
	)
	for _, rec := range recs {
		_, err := r.pool.Exec(ctx, stmt, rec.DateValues()...)
		switch {
		case err == nil:
			n++
		case isRowError(err):
			fails = append(fails, storage.RowFailure{UserID: rec.UserID, Line: rec.Line, Err: classify(err)})
		default:
			return n, fails, fmt.Errorf("insert user_id=%d: %w", rec.UserID, err)
		}
	}
	return n, fails, nil
}

// Query runs sql and materializes every row.
func (r *Repository) Query(ctx context.Context, sql string) (*storage.Rows, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &storage.Rows{}
	for _, fd := range rows.FieldDescriptions() {
		out.Columns = append(out.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, vals)
	}
	return out, rows.Err()
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) (int64, error) {
	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// isRowError reports whether err is a data exception (class 22) or an
// integrity constraint violation (class 23), i.e. caused by row content.
func isRowError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg += " (" + pgErr.Detail + ")"
		}
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, msg)
		}
		return fmt.Errorf("%w: %s [%s]", storage.ErrRowRejected, msg, pgErr.Code)
	}
	return fmt.Errorf("%w: %v", storage.ErrRowRejected, err)
}
