// Package mysql provides a MySQL-backed storage.Repository on top of sqldb.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"userload/internal/domain"
	"userload/internal/storage/sqldb"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string // go-sql-driver DSN, e.g. "tcp(db:3306)/app"
	User     string // overrides the DSN user when set
	Password string // overrides the DSN password when set
	Table    string
}

// MySQL server error numbers attributed to row content.
const (
	erDupEntry            = 1062
	erDupEntryWithKeyName = 1586
	erBadNull             = 1048
	erRowIsReferenced     = 1451
	erNoReferencedRow     = 1452
	erWarnDataOutOfRange  = 1264
	erWarnDataTruncated   = 1265
	erTruncatedWrongValue = 1292
	erTruncatedWrongField = 1366
	erDataTooLong         = 1406
	erCheckConstraint     = 3819
)

// Dialect is the MySQL flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:        "mysql",
	Driver:      "mysql",
	Placeholder: func(int) string { return "?" },
	Quote:       quote,
	ColumnsQuery: func(schema, table string) (string, []any) {
		if schema == "" {
			return `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`, []any{table}
		}
		return `SELECT COLUMN_NAME FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`, []any{schema, table}
	},
	TruncateSQL: func(quoted string) string { return "TRUNCATE TABLE " + quoted },
	Classify:    classify,
	Args:        func(rec domain.CleanRecord) []any { return rec.DateValues() },
}

// Repository is a MySQL-backed implementation of storage.Repository.
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
	mcfg, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := sqldb.Connect(ctx, db); err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return db, nil
}

// driverConfig parses the DSN and applies credential overrides.
func driverConfig(cfg Config) (*mysql.Config, error) {
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if cfg.User != "" {
		mcfg.User = cfg.User
	}
	if cfg.Password != "" {
		mcfg.Passwd = cfg.Password
	}
	return mcfg, nil
}

func quote(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func classify(err error) sqldb.ErrClass {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return sqldb.Fatal
	}
	switch me.Number {
	case erDupEntry, erDupEntryWithKeyName:
		return sqldb.Duplicate
	case erBadNull, erRowIsReferenced, erNoReferencedRow, erWarnDataOutOfRange,
		erWarnDataTruncated, erTruncatedWrongValue, erTruncatedWrongField,
		erDataTooLong, erCheckConstraint:
		return sqldb.RowRejected
	default:
		return sqldb.Fatal
	}
}
