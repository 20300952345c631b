package transformer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userload/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransform_Scenarios(t *testing.T) {
	t.Parallel()

	t.Run("ann_is_normalized", func(t *testing.T) {
		res := Transform(domain.RawRecord{Line: 2, UserID: "7", Name: "Ann", Email: "Ann@Example.COM", SignupDate: "2024-01-03T10:00:00"})
		require.False(t, res.Dropped())
		assert.Equal(t, domain.CleanRecord{
			UserID:     7,
			Name:       "Ann",
			Email:      "Ann@Example.COM",
			SignupDate: day(2024, 1, 3),
			Domain:     "example.com",
			Line:       2,
		}, res.Record)
		assert.Equal(t, "2024-01-03", res.Record.SignupDay())
	})

	t.Run("bob_is_dropped", func(t *testing.T) {
		res := Transform(domain.RawRecord{UserID: "8", Name: "Bob", Email: "not-an-email", SignupDate: "2024-01-04"})
		assert.True(t, res.Dropped())
		assert.Equal(t, DropInvalidEmail, res.Reason)
		assert.Equal(t, domain.CleanRecord{}, res.Record)
	})
}

func TestTransform_DropReasons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  domain.RawRecord
		want DropReason
	}{
		{"bad_date", domain.RawRecord{UserID: "1", Email: "a@b.co", SignupDate: "yesterday"}, DropInvalidDate},
		{"empty_date", domain.RawRecord{UserID: "1", Email: "a@b.co", SignupDate: ""}, DropInvalidDate},
		{"impossible_date", domain.RawRecord{UserID: "1", Email: "a@b.co", SignupDate: "2024-02-30"}, DropInvalidDate},
		{"epoch_overflow", domain.RawRecord{UserID: "1", Email: "a@b.co", SignupDate: "1e20"}, DropInvalidDate},
		{"no_at", domain.RawRecord{UserID: "1", Email: "ab.co", SignupDate: "2024-01-01"}, DropInvalidEmail},
		{"empty_domain", domain.RawRecord{UserID: "1", Email: "a@", SignupDate: "2024-01-01"}, DropInvalidEmail},
		{"no_dot", domain.RawRecord{UserID: "1", Email: "a@localhost", SignupDate: "2024-01-01"}, DropInvalidEmail},
		{"bad_user_id", domain.RawRecord{UserID: "x1", Email: "a@b.co", SignupDate: "2024-01-01"}, DropInvalidUserID},
		{"float_user_id", domain.RawRecord{UserID: "1.5", Email: "a@b.co", SignupDate: "2024-01-01"}, DropInvalidUserID},
		// date is checked first, then email.
		{"date_wins_over_email", domain.RawRecord{UserID: "x", Email: "bad", SignupDate: "bad"}, DropInvalidDate},
		{"email_wins_over_id", domain.RawRecord{UserID: "x", Email: "bad", SignupDate: "2024-01-01"}, DropInvalidEmail},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			res := Transform(c.raw)
			assert.Equal(t, c.want, res.Reason)
		})
	}
}

func TestTransform_EmptyNameAndPaddedID(t *testing.T) {
	t.Parallel()

	res := Transform(domain.RawRecord{UserID: " 42 ", Name: "", Email: "x@gmail.com", SignupDate: "2024-01-01"})
	require.False(t, res.Dropped())
	assert.Equal(t, int64(42), res.Record.UserID)
	assert.Equal(t, "", res.Record.Name)
}

func TestParseSignupDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2023-05-01 14:32:00", day(2023, 5, 1)},
		{"2023-05-01T14:32:00", day(2023, 5, 1)},
		{"2023-05-01T23:59:59.123456", day(2023, 5, 1)},
		{"2023-05-01T23:30:00-05:00", day(2023, 5, 1)},
		{"2023-05-01T00:30:00+02:00", day(2023, 5, 1)},
		{"2023-05-01", day(2023, 5, 1)},
		{"  2023-05-01  ", day(2023, 5, 1)},
		{"1704276000", day(2024, 1, 3)},    // 2024-01-03T10:00:00Z
		{"1704276000.75", day(2024, 1, 3)}, // fractional epoch seconds
		{"0", day(1970, 1, 1)},
		{"253402300799", day(9999, 12, 31)},
		{"20240103", day(2024, 1, 3)},
	}
	for _, c := range cases {
		got, ok := ParseSignupDate(c.in)
		require.True(t, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	bad := []string{
		"", "n/a", "01.05.2023", "-1", "NaN", "2023-13-01",
		"1e20", "1e300", "1E9", "+1704276000", "1704276000.", ".5", "0x10",
		"9223372036854775807", "99999999999999999999", "253402300800",
		"20241301", "12345678", "0000-01-01",
	}
	for _, in := range bad {
		_, ok := ParseSignupDate(in)
		assert.False(t, ok, in)
	}
}
