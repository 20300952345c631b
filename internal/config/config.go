// Package config defines the configuration model for a userload run and the
// loader that fills it from an optional JSON file, a .env file and the
// environment.
//
// Precedence, highest first: environment variables, the JSON config file,
// built-in defaults. Every key has a USERLOAD_* variable; the connection keys
// also accept the names the original deployment used (JDBC_URL,
// POSTGRES_USER, POSTGRES_TABLE, SECRET_POSTGRES_PASSWORD_PATH).
//
// Example (trimmed):
//
//	{
//	  "job":     "userload",
//	  "source":  { "kind": "file", "file": { "path": "users.csv" } },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://db:5432/app", "table": "users" } },
//	  "runtime": { "mode": "truncate", "batch_size": 1000, "drop_examples": 3 }
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Pipeline describes one userload run.
type Pipeline struct {
	// Job labels metrics and log lines.
	Job string `json:"job" mapstructure:"job"`

	// Source describes where input data comes from.
	Source Source `json:"source" mapstructure:"source"`

	// Storage describes where cleaned records are written.
	Storage Storage `json:"storage" mapstructure:"storage"`

	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
	Metrics Metrics       `json:"metrics" mapstructure:"metrics"`
	Log     Log           `json:"log" mapstructure:"log"`
}

// Source identifies the data source. Current kind: "file".
type Source struct {
	Kind string     `json:"kind" mapstructure:"kind"`
	File SourceFile `json:"file" mapstructure:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input CSV.
	Path string `json:"path" mapstructure:"path"`
}

// Storage selects the backend: "postgres", "sqlite", "mysql" or "mssql".
type Storage struct {
	Kind string   `json:"kind" mapstructure:"kind"`
	DB   DBConfig `json:"db" mapstructure:"db"`
}

// DBConfig configures the destination database.
type DBConfig struct {
	// DSN is the backend connection string. A leading "jdbc:" is stripped.
	DSN string `json:"dsn" mapstructure:"dsn"`

	// User overrides the user in DSN when set.
	User string `json:"user" mapstructure:"user"`

	// PasswordFile names a file whose content (trailing whitespace trimmed)
	// is the database password.
	PasswordFile string `json:"password_file" mapstructure:"password_file"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table" mapstructure:"table"`

	// Migrate applies the embedded schema migrations before loading.
	Migrate bool `json:"migrate" mapstructure:"migrate"`
}

// RuntimeConfig controls how the loader writes.
type RuntimeConfig struct {
	// Mode is "truncate" (default) or "append".
	Mode      string `json:"mode" mapstructure:"mode"`
	BatchSize int    `json:"batch_size" mapstructure:"batch_size"`

	// DropExamples caps the dropped rows logged per reason at debug level.
	// Zero keeps the default; a negative value logs none.
	DropExamples int `json:"drop_examples" mapstructure:"drop_examples"`
}

// Metrics selects a metrics backend: "none" (default), "prometheus" or
// "datadog".
type Metrics struct {
	Backend        string `json:"backend" mapstructure:"backend"`
	PushgatewayURL string `json:"pushgateway_url" mapstructure:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" mapstructure:"datadog_addr"`
}

// Log configures logrus.
type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// envBindings maps config keys to environment variables, in lookup order.
var envBindings = map[string][]string{
	"job":                      {"USERLOAD_JOB"},
	"source.kind":              {"USERLOAD_SOURCE_KIND"},
	"source.file.path":         {"USERLOAD_INPUT"},
	"storage.kind":             {"USERLOAD_STORAGE_KIND"},
	"storage.db.dsn":           {"USERLOAD_DSN", "JDBC_URL"},
	"storage.db.user":          {"USERLOAD_DB_USER", "POSTGRES_USER"},
	"storage.db.password_file": {"USERLOAD_PASSWORD_FILE", "SECRET_POSTGRES_PASSWORD_PATH"},
	"storage.db.table":         {"USERLOAD_TABLE", "POSTGRES_TABLE"},
	"storage.db.migrate":       {"USERLOAD_MIGRATE"},
	"runtime.mode":             {"USERLOAD_MODE"},
	"runtime.batch_size":       {"USERLOAD_BATCH_SIZE"},
	"runtime.drop_examples":    {"USERLOAD_DROP_EXAMPLES"},
	"metrics.backend":          {"USERLOAD_METRICS_BACKEND"},
	"metrics.pushgateway_url":  {"USERLOAD_PUSHGATEWAY_URL"},
	"metrics.datadog_addr":     {"USERLOAD_DATADOG_ADDR"},
	"log.level":                {"USERLOAD_LOG_LEVEL"},
	"log.format":               {"USERLOAD_LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "userload")
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.file.path", "")
	v.SetDefault("storage.kind", "postgres")
	v.SetDefault("storage.db.dsn", "")
	v.SetDefault("storage.db.user", "")
	v.SetDefault("storage.db.password_file", "")
	v.SetDefault("storage.db.table", "users")
	v.SetDefault("storage.db.migrate", false)
	v.SetDefault("runtime.mode", "truncate")
	v.SetDefault("runtime.batch_size", 1000)
	v.SetDefault("runtime.drop_examples", 0)
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "127.0.0.1:8125")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. With no arguments it loads
// ./.env; a missing default file is not an error.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load builds a Pipeline from defaults, the optional JSON file at path and
// the environment.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Pipeline{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	p.Storage.DB.DSN = NormalizeDSN(p.Storage.DB.DSN)
	return p, nil
}

// NormalizeDSN strips a JDBC-style "jdbc:" prefix and surrounding space.
func NormalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if len(dsn) >= 5 && strings.EqualFold(dsn[:5], "jdbc:") {
		dsn = dsn[5:]
	}
	return dsn
}

// ReadSecret returns the content of the file at path with trailing
// whitespace removed. An empty path yields an empty secret.
func ReadSecret(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	return strings.TrimRight(string(b), " \t\r\n"), nil
}
