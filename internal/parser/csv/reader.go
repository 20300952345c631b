// Package csv reads the users CSV (user_id,name,email,signup_date) into a
// lazy, file-ordered sequence of domain.RawRecord values.
//
// The reader is strict about shape: a bad header or a data line whose column
// count differs from the header fails the whole run. Content validation is
// left to the transformer.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/zeebo/xxh3"

	"userload/internal/domain"
)

// ErrHeader reports a missing or malformed header row.
var ErrHeader = errors.New("csv: invalid header")

// ParseError is a fatal structural error at a given source line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader yields RawRecords one data line at a time. It is not restartable;
// re-open the source to read again.
type Reader struct {
	cr     *csv.Reader
	digest *xxh3.Hasher
	idx    [len(expectedFields)]int
	rows   int
	err    error // sticky terminal error (io.EOF or fatal)
}

// NewReader consumes and validates the header line of r.
func NewReader(r io.Reader) (*Reader, error) {
	h := xxh3.New()
	cr := csv.NewReader(io.TeeReader(r, h))
	cr.ReuseRecord = true
	// 0: the header fixes the width; any other width is csv.ErrFieldCount.
	cr.FieldsPerRecord = 0

	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrHeader)
		}
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	idx, err := mapHeader(hdr)
	if err != nil {
		return nil, err
	}
	return &Reader{cr: cr, digest: h, idx: idx}, nil
}

// Next returns the next record, io.EOF at end of input, or a *ParseError.
// After any error, Next keeps returning that error.
func (r *Reader) Next() (domain.RawRecord, error) {
	if r.err != nil {
		return domain.RawRecord{}, r.err
	}

	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
			return domain.RawRecord{}, io.EOF
		}
		line := 0
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.StartLine
			err = pe.Err
		}
		r.err = &ParseError{Line: line, Err: err}
		return domain.RawRecord{}, r.err
	}

	line, _ := r.cr.FieldPos(0)
	r.rows++
	return domain.RawRecord{
		Line:       line,
		UserID:     rec[r.idx[0]],
		Name:       rec[r.idx[1]],
		Email:      rec[r.idx[2]],
		SignupDate: rec[r.idx[3]],
	}, nil
}

// All adapts Next into a single-use sequence. Iteration stops after the
// first error, which is yielded with a zero record; io.EOF is not yielded.
func (r *Reader) All() iter.Seq2[domain.RawRecord, error] {
	return func(yield func(domain.RawRecord, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(domain.RawRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Rows is the number of data records returned so far.
func (r *Reader) Rows() int { return r.rows }

// Digest is the xxh3 hash of every byte consumed from the source so far.
// After io.EOF it identifies the whole input.
func (r *Reader) Digest() uint64 { return r.digest.Sum64() }
