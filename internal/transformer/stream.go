package transformer

import (
	"iter"

	"userload/internal/domain"
)

// Drop describes one excluded row, for counting and sampling.
type Drop struct {
	Line   int
	Reason DropReason
	Raw    domain.RawRecord
}

// Stream lazily transforms rows from in. Accepted rows are yielded; dropped
// rows go to onDrop (which may be nil). An error from in is passed through and
// ends the sequence.
func Stream(in iter.Seq2[domain.RawRecord, error], onDrop func(Drop)) iter.Seq2[domain.CleanRecord, error] {
	return func(yield func(domain.CleanRecord, error) bool) {
		for raw, err := range in {
			if err != nil {
				yield(domain.CleanRecord{}, err)
				return
			}
			res := Transform(raw)
			if res.Dropped() {
				if onDrop != nil {
					onDrop(Drop{Line: raw.Line, Reason: res.Reason, Raw: raw})
				}
				continue
			}
			if !yield(res.Record, nil) {
				return
			}
		}
	}
}
