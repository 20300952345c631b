package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"userload/internal/query"
	"userload/internal/storage"
	"userload/internal/transformer"
)

// Summary is the user-visible outcome of a run.
type Summary struct {
	RunID string
	Input string
	// InputBytes is the source size when the source reports one, else -1.
	InputBytes int64
	// Digest is the xxh3 hash of the input bytes consumed.
	Digest uint64

	Read    int64
	Dropped map[transformer.DropReason]int64
	Load    storage.LoadReport
	Queries query.Report

	Duration time.Duration
}

// DroppedTotal sums Dropped over every reason.
func (s Summary) DroppedTotal() int64 {
	var n int64
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// Log writes the run summary, one line for the counts and one per query.
func (s Summary) Log(log logrus.FieldLogger) {
	fields := logrus.Fields{
		"input":         s.Input,
		"digest":        fmt.Sprintf("%016x", s.Digest),
		"read":          s.Read,
		"loaded":        s.Load.Inserted,
		"dropped":       s.DroppedTotal(),
		"insert_failed": s.Load.Failed(),
		"queries_ok":    len(s.Queries.Results) - s.Queries.Failed(),
		"queries_fail":  s.Queries.Failed(),
		"elapsed":       s.Duration.Truncate(time.Millisecond),
	}
	for _, r := range transformer.Reasons {
		fields["dropped_"+string(r)] = s.Dropped[r]
	}
	if s.InputBytes >= 0 {
		fields["input_bytes"] = s.InputBytes
	}
	if del, ok := s.Queries.Get(query.DeleteNonAllowlistedDomains); ok && del.OK() {
		fields["deleted"] = del.Affected
	}
	log.WithFields(fields).Info("summary")

	for _, r := range s.Queries.Results {
		entry := log.WithField("query", r.Name)
		if !r.OK() {
			entry.WithError(r.Err).Warn("summary: query FAIL")
			continue
		}
		entry.Info("summary: query PASS")
	}

	// Conservation check: every data row is either dropped or handed to the
	// loader, which inserts it or reports it as failed.
	if s.Read != s.DroppedTotal()+s.Load.Received {
		log.WithFields(logrus.Fields{
			"read":     s.Read,
			"dropped":  s.DroppedTotal(),
			"received": s.Load.Received,
		}).Warn("summary: row accounting mismatch")
	}
}

// dropCounter counts dropped rows per reason and logs the first few of each.
type dropCounter struct {
	counts  map[transformer.DropReason]int64
	limit   int
	log     logrus.FieldLogger
	skipped int64
}

func newDropCounter(counts map[transformer.DropReason]int64, limit int, log logrus.FieldLogger) *dropCounter {
	if limit == 0 {
		limit = DefaultDropExamples
	}
	if limit < 0 {
		limit = 0
	}
	return &dropCounter{counts: counts, limit: limit, log: log}
}

func (d *dropCounter) add(dr transformer.Drop) {
	d.counts[dr.Reason]++
	if d.counts[dr.Reason] > int64(d.limit) {
		d.skipped++
		return
	}
	d.log.WithFields(logrus.Fields{
		"line":    dr.Line,
		"reason":  dr.Reason,
		"user_id": dr.Raw.UserID,
		"date":    dr.Raw.SignupDate,
	}).Debug("transform: row dropped")
}

func (d *dropCounter) logTotals() {
	if d.skipped > 0 {
		d.log.WithField("suppressed", d.skipped).Debug("transform: further dropped rows not shown")
	}
}
