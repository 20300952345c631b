// Package pipeline wires one userload run together:
//
//	source → csv.Reader → transformer.Stream → storage.Loader → query.Runner
//
// Everything runs on the calling goroutine in a single pass over the input.
// Fatal errors (unreadable source, bad header, wrong column count, connection
// or schema problems) end the run; dropped rows, rejected inserts and failing
// queries are counted and reported in the Summary instead.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"userload/internal/datasource"
	"userload/internal/metrics"
	"userload/internal/parser/csv"
	"userload/internal/query"
	"userload/internal/schema"
	"userload/internal/storage"
	"userload/internal/transformer"
)

// DefaultDropExamples is how many dropped rows per reason are logged at debug.
const DefaultDropExamples = 3

// Options is the resolved input of one run.
type Options struct {
	Job     string
	Source  datasource.Source
	Storage storage.Config
	Loader  storage.LoaderConfig

	// Migrate applies the embedded schema migrations before loading.
	Migrate bool

	// DropExamples caps the dropped rows logged per reason. Zero selects
	// DefaultDropExamples; a negative value logs none.
	DropExamples int
}

// Run executes the pipeline. The returned Summary is filled as far as the run
// got, even when err is non-nil.
func Run(ctx context.Context, opts Options, log logrus.FieldLogger) (Summary, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Source == nil {
		return Summary{}, fmt.Errorf("pipeline: no source")
	}
	if opts.Loader.Job == "" {
		opts.Loader.Job = opts.Job
	}

	sum := Summary{
		RunID:      uuid.NewString(),
		Input:      opts.Source.Name(),
		InputBytes: -1,
		Dropped:    make(map[transformer.DropReason]int64, len(transformer.Reasons)),
	}
	log = log.WithField("run_id", sum.RunID)
	start := time.Now()

	err := run(ctx, opts, log, &sum)
	sum.Duration = time.Since(start)
	metrics.RecordStep(opts.Job, "run", err, sum.Duration)
	return sum, err
}

func run(ctx context.Context, opts Options, log logrus.FieldLogger, sum *Summary) error {
	rc, err := opts.Source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open source %s: %w", opts.Source.Name(), err)
	}
	defer rc.Close()
	if sz, ok := opts.Source.(datasource.Sizer); ok {
		if n, err := sz.Size(); err == nil {
			sum.InputBytes = n
		}
	}

	reader, err := csv.NewReader(rc)
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.Source.Name(), err)
	}

	if opts.Migrate {
		if _, err := schema.Migrate(ctx, opts.Storage, log); err != nil {
			return err
		}
	}

	repo, err := storage.New(ctx, opts.Storage)
	if err != nil {
		return fmt.Errorf("connect %s: %w", opts.Storage.Kind, err)
	}
	defer repo.Close()
	log.WithFields(logrus.Fields{
		"storage": repo.Kind(),
		"table":   opts.Storage.Table,
		"mode":    opts.Loader.Mode,
	}).Info("pipeline: connected")

	drops := newDropCounter(sum.Dropped, opts.DropExamples, log)
	clean := transformer.Stream(reader.All(), drops.add)

	loadStart := time.Now()
	rep, err := storage.NewLoader(repo, opts.Loader, log).Load(ctx, clean)
	metrics.RecordStep(opts.Job, "load", err, time.Since(loadStart))
	sum.Read = int64(reader.Rows())
	sum.Load = rep
	sum.Digest = reader.Digest()
	metrics.RecordRow(opts.Job, metrics.KindRead, sum.Read)
	for reason, n := range sum.Dropped {
		metrics.RecordRow(opts.Job, metrics.KindDroppedPrefix+string(reason), n)
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	drops.logTotals()

	runner, err := query.NewRunner(repo, query.RunnerConfig{
		Table: opts.Storage.Table,
		Job:   opts.Job,
	}, log)
	if err != nil {
		return err
	}
	sum.Queries = runner.Run(ctx)
	return nil
}
