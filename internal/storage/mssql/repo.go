// Package mssql implements a Microsoft SQL Server repository on top of sqldb
// using the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"userload/internal/domain"
	"userload/internal/storage/sqldb"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN      string // sqlserver:// URL or ADO key=value string
	User     string // overrides the DSN user when set
	Password string // overrides the DSN password when set
	Table    string // e.g. "dbo.users"
}

// SQL Server error numbers attributed to row content.
const (
	errPKViolation        = 2627
	errUniqueIndex        = 2601
	errNullInsert         = 515
	errConstraintConflict = 547
	errDateConversion     = 241
	errDateOutOfRange     = 242
	errConversion         = 245
	errArithOverflow      = 8115
	errStringTruncated    = 8152
	errStringTruncatedCol = 2628
)

// Dialect is the SQL Server flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:        "mssql",
	Driver:      "sqlserver",
	Placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
	Quote:       msIdent,
	ColumnsQuery: func(schema, table string) (string, []any) {
		if schema == "" {
			return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`, []any{table}
		}
		return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 ORDER BY ORDINAL_POSITION`, []any{schema, table}
	},
	TruncateSQL: func(quoted string) string { return "TRUNCATE TABLE " + quoted },
	Classify:    classify,
	Args:        func(rec domain.CleanRecord) []any { return rec.DateValues() },
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if err := sqldb.CheckTable(Dialect.Kind, cfg.Table); err != nil {
		return nil, nil, err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{Repository: sqldb.New(db, Dialect, cfg.Table)}, closeFn, nil
}

func openDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	dcfg, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(mssql.NewConnectorConfig(dcfg))
	if err := sqldb.Connect(ctx, db); err != nil {
		return nil, fmt.Errorf("mssql: %w", err)
	}
	return db, nil
}

// driverConfig validates the DSN early to fail fast on obvious mistakes and
// applies credential overrides.
func driverConfig(cfg Config) (msdsn.Config, error) {
	dcfg, err := msdsn.Parse(cfg.DSN)
	if err != nil {
		return msdsn.Config{}, fmt.Errorf("mssql dsn: %w", err)
	}
	if cfg.User != "" {
		dcfg.User = cfg.User
	}
	if cfg.Password != "" {
		dcfg.Password = cfg.Password
	}
	return dcfg, nil
}

// msIdent quotes an identifier segment with brackets.
func msIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func classify(err error) sqldb.ErrClass {
	var me mssql.Error
	if !errors.As(err, &me) {
		return sqldb.Fatal
	}
	switch me.Number {
	case errPKViolation, errUniqueIndex:
		return sqldb.Duplicate
	case errNullInsert, errConstraintConflict, errDateConversion, errDateOutOfRange,
		errConversion, errArithOverflow, errStringTruncated, errStringTruncatedCol:
		return sqldb.RowRejected
	default:
		return sqldb.Fatal
	}
}
