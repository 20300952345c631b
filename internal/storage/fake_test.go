package storage

import (
	"context"
	"sync"

	"userload/internal/domain"
)

// fakeRepo is an in-memory Repository keyed by user_id.
type fakeRepo struct {
	mu        sync.Mutex
	cols      []string
	rows      map[int64]domain.CleanRecord
	truncated int
	batches   [][]domain.CleanRecord
	insertErr error
	closed    bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cols: append([]string(nil), domain.Columns...), rows: map[int64]domain.CleanRecord{}}
}

func (f *fakeRepo) Kind() string { return "fake" }

func (f *fakeRepo) Columns(context.Context) ([]string, error) { return f.cols, nil }

func (f *fakeRepo) Truncate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truncated++
	f.rows = map[int64]domain.CleanRecord{}
	return nil
}

func (f *fakeRepo) InsertRecords(_ context.Context, recs []domain.CleanRecord) (int64, []RowFailure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]domain.CleanRecord(nil), recs...))
	if f.insertErr != nil {
		return 0, nil, f.insertErr
	}
	var (
		n     int64
		fails []RowFailure
	)
	for _, r := range recs {
		if _, dup := f.rows[r.UserID]; dup {
			fails = append(fails, RowFailure{UserID: r.UserID, Line: r.Line, Err: ErrDuplicateKey})
			continue
		}
		f.rows[r.UserID] = r
		n++
	}
	return n, fails, nil
}

func (f *fakeRepo) Query(context.Context, string) (*Rows, error) { return &Rows{}, nil }
func (f *fakeRepo) Exec(context.Context, string) (int64, error)  { return 0, nil }
func (f *fakeRepo) Close()                                       { f.closed = true }
