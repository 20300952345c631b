package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPipeline() Pipeline {
	return Pipeline{
		Job:     "userload",
		Source:  Source{Kind: "file", File: SourceFile{Path: "users.csv"}},
		Storage: Storage{Kind: "postgres", DB: DBConfig{DSN: "postgres://db/app", Table: "users"}},
		Runtime: RuntimeConfig{Mode: "truncate", BatchSize: 1000},
		Metrics: Metrics{Backend: "none"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

func paths(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, iss := range issues {
		out[i] = iss.Path
	}
	return out
}

func TestValidatePipeline_Valid(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(validPipeline())
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestValidatePipeline_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Pipeline)
		path   string
	}{
		{"empty job", func(p *Pipeline) { p.Job = " " }, "job"},
		{"unknown source", func(p *Pipeline) { p.Source.Kind = "http" }, "source.kind"},
		{"missing input", func(p *Pipeline) { p.Source.File.Path = "" }, "source.file.path"},
		{"unknown storage", func(p *Pipeline) { p.Storage.Kind = "oracle" }, "storage.kind"},
		{"missing dsn", func(p *Pipeline) { p.Storage.DB.DSN = "" }, "storage.db.dsn"},
		{"missing table", func(p *Pipeline) { p.Storage.DB.Table = "" }, "storage.db.table"},
		{"password file missing", func(p *Pipeline) { p.Storage.DB.PasswordFile = filepath.Join("no", "such", "file") }, "storage.db.password_file"},
		{"bad mode", func(p *Pipeline) { p.Runtime.Mode = "upsert" }, "runtime.mode"},
		{"negative batch", func(p *Pipeline) { p.Runtime.BatchSize = -1 }, "runtime.batch_size"},
		{"unknown metrics", func(p *Pipeline) { p.Metrics.Backend = "statsite" }, "metrics.backend"},
		{"prometheus without url", func(p *Pipeline) { p.Metrics.Backend = "prometheus" }, "metrics.pushgateway_url"},
		{"bad level", func(p *Pipeline) { p.Log.Level = "loud" }, "log.level"},
		{"bad format", func(p *Pipeline) { p.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			assert.True(t, HasErrors(issues))
			assert.Contains(t, paths(issues), tt.path)
		})
	}
}

func TestValidatePipeline_Warnings(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Storage.Kind = "sqlite"
	p.Storage.DB.User = "ignored"
	p.Runtime.BatchSize = 500000

	issues := ValidatePipeline(p)
	assert.False(t, HasErrors(issues))
	assert.ElementsMatch(t, []string{"storage.db", "runtime.batch_size"}, paths(issues))
	for _, iss := range issues {
		assert.Equal(t, SeverityWarning, iss.Severity)
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "storage.kind", Message: "bad"}
	assert.Equal(t, "error at storage.kind: bad", iss.Error())
}
