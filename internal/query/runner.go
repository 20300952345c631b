// Package query runs the fixed post-load statement set against the users
// table. Statements run independently and in order; a failing statement is
// recorded and the next one still runs.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"userload/internal/domain"
	"userload/internal/logging"
	"userload/internal/metrics"
	"userload/internal/storage"
)

// RunnerConfig selects the dialect and destination table.
type RunnerConfig struct {
	Table   string
	Dialect string
	// Job labels the metrics the runner emits.
	Job string
}

// Result is the outcome of one statement.
type Result struct {
	Name     string
	Columns  []string
	Rows     [][]any
	Affected int64
	Mutates  bool
	Err      error
	Duration time.Duration
}

// OK reports whether the statement succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report holds one Result per statement, in execution order.
type Report struct {
	Results []Result
}

// Failed counts failing statements.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Get returns the result named name.
func (r Report) Get(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Runner executes the statement set through a Repository.
type Runner struct {
	repo  storage.Repository
	cfg   RunnerConfig
	stmts []Statement
	log   logrus.FieldLogger
}

// NewRunner renders the statement set for cfg. An empty Dialect falls back
// to the repository's kind.
func NewRunner(repo storage.Repository, cfg RunnerConfig, log logrus.FieldLogger) (*Runner, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = repo.Kind()
	}
	stmts, err := Statements(cfg.Dialect, cfg.Table)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{repo: repo, cfg: cfg, stmts: stmts, log: log}, nil
}

// Run executes every statement and returns the report. It never stops early.
func (r *Runner) Run(ctx context.Context) Report {
	rep := Report{Results: make([]Result, 0, len(r.stmts))}
	for _, st := range r.stmts {
		res := r.runOne(ctx, st)
		metrics.RecordStep(r.cfg.Job, "query:"+st.Name, res.Err, res.Duration)
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func (r *Runner) runOne(ctx context.Context, st Statement) Result {
	res := Result{Name: st.Name, Mutates: st.Mutates}
	log := r.log.WithField("query", st.Name)
	start := time.Now()

	if st.Mutates {
		res.Affected, res.Err = r.repo.Exec(ctx, st.SQL)
	} else {
		var rows *storage.Rows
		rows, res.Err = r.repo.Query(ctx, st.SQL)
		if rows != nil {
			res.Columns, res.Rows = rows.Columns, rows.Values
		}
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		log.WithError(res.Err).Error("query failed")
		return res
	}
	if st.Mutates {
		log.WithField("rows_affected", res.Affected).Info("query done")
		return res
	}
	log.WithField("rows", len(res.Rows)).Info("query done")
	for _, row := range res.Rows {
		log.Info(FormatRow(res.Columns, row))
	}
	return res
}

// FormatRow renders a row as "col=value" pairs. time.Time values print as
// dates when they carry no time of day.
func FormatRow(cols []string, row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		name := fmt.Sprintf("col%d", i)
		if i < len(cols) {
			name = cols[i]
		}
		parts[i] = name + "=" + FormatValue(v)
	}
	return strings.Join(parts, " ")
}

// FormatValue renders one column value for logs. NULL prints as "NULL".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(domain.DateLayout)
		}
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
