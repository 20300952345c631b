package storage

// This file implements the batched Loader that drains CleanRecords from the
// transformer and writes them through a Repository.
//
// Logging: on every flush a concise progress line is emitted with running
// totals and instantaneous rows/sec since the previous flush.

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"userload/internal/domain"
	"userload/internal/logging"
	"userload/internal/metrics"
)

// Mode controls what happens to existing rows before a load.
type Mode string

const (
	// ModeTruncate empties the destination table before inserting.
	ModeTruncate Mode = "truncate"
	// ModeAppend keeps existing rows; colliding user_ids become row failures.
	ModeAppend Mode = "append"
)

// DefaultBatchSize is used when LoaderConfig.BatchSize is not positive.
const DefaultBatchSize = 1000

// ParseMode validates a mode string. The empty string selects ModeTruncate.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTruncate:
		return ModeTruncate, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("unknown load mode %q (want truncate|append)", s)
	}
}

// LoaderConfig tunes a Loader.
type LoaderConfig struct {
	Mode      Mode
	BatchSize int
	// Job labels the metrics the loader emits.
	Job string
}

// LoadReport summarizes one load.
type LoadReport struct {
	Received int64
	Inserted int64
	Batches  int64
	Failures []RowFailure
}

// Failed is the number of records the database refused.
func (r LoadReport) Failed() int64 { return int64(len(r.Failures)) }

// Loader writes CleanRecords into the destination table in batches.
type Loader struct {
	repo Repository
	cfg  LoaderConfig
	log  logrus.FieldLogger
}

// NewLoader returns a Loader over repo. A nil logger discards output.
func NewLoader(repo Repository, cfg LoaderConfig, log logrus.FieldLogger) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTruncate
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{repo: repo, cfg: cfg, log: log}
}

// CheckSchema verifies the destination table exists and carries every
// column in domain.Columns. Column names compare case-insensitively.
func CheckSchema(ctx context.Context, repo Repository) error {
	cols, err := repo.Columns(ctx)
	if err != nil {
		return fmt.Errorf("read destination columns: %w", err)
	}
	if len(cols) == 0 {
		return ErrTableMissing
	}
	have := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c)] = struct{}{}
	}
	var missing []string
	for _, want := range domain.Columns {
		if _, ok := have[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSchemaMismatch, strings.Join(missing, ","))
	}
	return nil
}

// Load checks the destination schema, applies the configured mode, then
// drains recs in batches. An error yielded by recs aborts the load and is
// returned as is; rows already flushed stay written.
func (l *Loader) Load(ctx context.Context, recs iter.Seq2[domain.CleanRecord, error]) (LoadReport, error) {
	var rep LoadReport

	if err := CheckSchema(ctx, l.repo); err != nil {
		return rep, err
	}
	if l.cfg.Mode == ModeTruncate {
		if err := l.repo.Truncate(ctx); err != nil {
			return rep, fmt.Errorf("truncate destination: %w", err)
		}
		l.log.Debug("loader: destination truncated")
	}

	var (
		batch     = make([]domain.CleanRecord, 0, l.cfg.BatchSize)
		start     = time.Now()
		lastFlush = start
		lastTotal int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, fails, err := l.repo.InsertRecords(ctx, batch)
		rep.Inserted += n
		rep.Failures = append(rep.Failures, fails...)
		size := len(batch)
		batch = batch[:0]
		if err != nil {
			l.log.WithError(err).WithField("inserted", rep.Inserted).Error("loader: batch insert failed")
			return err
		}

		rep.Batches++
		metrics.RecordBatches(l.cfg.Job, 1)
		metrics.RecordRow(l.cfg.Job, metrics.KindInserted, n)
		metrics.RecordRow(l.cfg.Job, metrics.KindInsertFailed, int64(len(fails)))

		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(rep.Inserted-lastTotal) / since.Seconds()
		}
		l.log.WithFields(logrus.Fields{
			"batch":          rep.Batches,
			"size":           size,
			"inserted":       n,
			"failed":         len(fails),
			"total_inserted": rep.Inserted,
			"rps":            fmt.Sprintf("%.0f", rps),
			"elapsed":        now.Sub(start).Truncate(time.Millisecond),
		}).Debug("loader: batch flushed")
		lastFlush = now
		lastTotal = rep.Inserted
		return nil
	}

	for rec, err := range recs {
		if err != nil {
			return rep, err
		}
		if cerr := ctx.Err(); cerr != nil {
			return rep, cerr
		}
		rep.Received++
		batch = append(batch, rec)
		if len(batch) >= l.cfg.BatchSize {
			if err := flush(); err != nil {
				return rep, err
			}
		}
	}
	if err := flush(); err != nil {
		return rep, err
	}

	for _, f := range rep.Failures {
		entry := l.log.WithFields(logrus.Fields{"user_id": f.UserID, "line": f.Line})
		if errors.Is(f.Err, ErrDuplicateKey) {
			entry.Warn("loader: duplicate user_id rejected")
			continue
		}
		entry.WithError(f.Err).Warn("loader: row rejected")
	}
	return rep, nil
}
