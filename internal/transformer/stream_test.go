package transformer

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userload/internal/domain"
)

func seqOf(rows []domain.RawRecord, tail error) iter.Seq2[domain.RawRecord, error] {
	return func(yield func(domain.RawRecord, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(domain.RawRecord{}, tail)
		}
	}
}

func TestStream_DropsAndKeepsOrder(t *testing.T) {
	t.Parallel()

	rows := []domain.RawRecord{
		{Line: 2, UserID: "1", Email: "a@gmail.com", SignupDate: "2024-01-01"},
		{Line: 3, UserID: "2", Email: "broken", SignupDate: "2024-01-01"},
		{Line: 4, UserID: "3", Email: "c@yahoo.com", SignupDate: "2024-01-02"},
		{Line: 5, UserID: "z", Email: "d@yahoo.com", SignupDate: "2024-01-02"},
	}

	var drops []Drop
	var got []int64
	for rec, err := range Stream(seqOf(rows, nil), func(d Drop) { drops = append(drops, d) }) {
		require.NoError(t, err)
		got = append(got, rec.UserID)
	}

	assert.Equal(t, []int64{1, 3}, got)
	require.Len(t, drops, 2)
	assert.Equal(t, Drop{Line: 3, Reason: DropInvalidEmail, Raw: rows[1]}, drops[0])
	assert.Equal(t, DropInvalidUserID, drops[1].Reason)
}

func TestStream_PassesThroughParseError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	rows := []domain.RawRecord{{Line: 2, UserID: "1", Email: "a@gmail.com", SignupDate: "2024-01-01"}}

	var n int
	var last error
	for _, err := range Stream(seqOf(rows, boom), nil) {
		if err != nil {
			last = err
			break
		}
		n++
	}
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, last, boom)
}
