// Package schema owns the destination table's DDL. Migrations are embedded
// per dialect and applied with goose; the loader itself never creates tables.
package schema

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"userload/internal/storage"
	"userload/internal/storage/sqldb"
)

// DefaultTable is the table the migrations create.
const DefaultTable = "users"

//go:embed migrations
var migrations embed.FS

var dialects = map[string]goose.Dialect{
	"postgres": goose.DialectPostgres,
	"sqlite":   goose.DialectSQLite3,
	"mysql":    goose.DialectMySQL,
	"mssql":    goose.DialectMSSQL,
}

// Applied describes one migration that ran.
type Applied struct {
	Version  int64
	Path     string
	Duration time.Duration
}

// Status describes one known migration.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

func provider(ctx context.Context, cfg storage.Config) (*goose.Provider, func(), error) {
	dialect, ok := dialects[cfg.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("schema: no migrations for storage.kind=%q", cfg.Kind)
	}
	if cfg.Table != "" {
		if _, name := sqldb.SplitName(cfg.Table); !strings.EqualFold(name, DefaultTable) {
			return nil, nil, fmt.Errorf("schema: migrations manage table %q, not %q; create it yourself", DefaultTable, cfg.Table)
		}
	}
	fsys, err := fs.Sub(migrations, "migrations/"+cfg.Kind)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.OpenSQL(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: open %s: %w", cfg.Kind, err)
	}
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("schema: goose provider: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

// Migrate applies every pending migration for cfg.Kind.
func Migrate(ctx context.Context, cfg storage.Config, log logrus.FieldLogger) ([]Applied, error) {
	p, closeFn, err := provider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	results, err := p.Up(ctx)
	out := make([]Applied, 0, len(results))
	for _, r := range results {
		a := Applied{Version: r.Source.Version, Path: r.Source.Path, Duration: r.Duration}
		out = append(out, a)
		if log != nil {
			log.WithFields(logrus.Fields{
				"version":  a.Version,
				"file":     a.Path,
				"duration": a.Duration.Truncate(time.Millisecond),
			}).Info("schema: migration applied")
		}
	}
	if err != nil {
		return out, fmt.Errorf("schema: migrate up: %w", err)
	}
	return out, nil
}

// Current lists every embedded migration and whether it has been applied.
func Current(ctx context.Context, cfg storage.Config) ([]Status, error) {
	p, closeFn, err := provider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	st, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: status: %w", err)
	}
	out := make([]Status, 0, len(st))
	for _, s := range st {
		out = append(out, Status{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}
