package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanRecordValues(t *testing.T) {
	r := CleanRecord{
		UserID:     7,
		Name:       "Ann",
		Email:      "Ann@Example.COM",
		SignupDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Domain:     "example.com",
		Line:       2,
	}

	assert.Equal(t, "2024-01-03", r.SignupDay())
	assert.Equal(t, []any{int64(7), "Ann", "Ann@Example.COM", "2024-01-03", "example.com"}, r.Values())

	dv := r.DateValues()
	assert.Len(t, dv, len(Columns))
	assert.Equal(t, r.SignupDate, dv[3])
}
