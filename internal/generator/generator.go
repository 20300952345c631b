// Package generator writes synthetic users CSV files for exercising the
// loader: sequential user_ids, fake names, unique free-mail addresses and
// signup times as Unix epoch seconds.
package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
)

// Header is the first line of every generated file.
var Header = []string{"user_id", "name", "email", "signup_date"}

var freeMail = []string{"gmail.com", "yahoo.com", "hotmail.com"}

// Options controls one generated file.
type Options struct {
	Count int
	// Start and End bound the signup times, both inclusive.
	Start time.Time
	End   time.Time
	// Seed makes output reproducible; zero picks a random seed.
	Seed int64
}

// Write streams opts.Count records to w. Progress is logged every 10%.
func Write(w io.Writer, opts Options, log logrus.FieldLogger) error {
	if opts.Count < 0 {
		return fmt.Errorf("generator: count must be >= 0, got %d", opts.Count)
	}
	if opts.End.Before(opts.Start) {
		return fmt.Errorf("generator: end %s is before start %s",
			opts.End.Format(time.RFC3339), opts.Start.Format(time.RFC3339))
	}
	faker := gofakeit.New(opts.Seed)
	step := opts.Count / 10

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("generator: write header: %w", err)
	}
	row := make([]string, len(Header))
	for id := 1; id <= opts.Count; id++ {
		name := faker.Name()
		ts := faker.DateRange(opts.Start, opts.End)

		row[0] = strconv.Itoa(id)
		row[1] = name
		row[2] = email(name, id, faker.RandomString(freeMail))
		row[3] = epoch(ts)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("generator: write record %d: %w", id, err)
		}

		if log != nil && step > 0 && id%step == 0 {
			log.WithFields(logrus.Fields{"generated": id, "total": opts.Count}).Info("generator: progress")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("generator: flush: %w", err)
	}
	return nil
}

// email builds first.last.id@domain from a "First Last" name. Anything but
// ASCII letters is dropped from the local part.
func email(name string, id int, domain string) string {
	parts := strings.Fields(name)
	local := make([]string, 0, 3)
	if len(parts) > 0 {
		if first := slug(parts[0]); first != "" {
			local = append(local, first)
		}
		if last := slug(strings.Join(parts[1:], "")); last != "" {
			local = append(local, last)
		}
	}
	if len(local) == 0 {
		local = append(local, "user")
	}
	local = append(local, strconv.Itoa(id))
	return strings.Join(local, ".") + "@" + domain
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, s)
}

// epoch renders t as Unix seconds with microsecond precision.
func epoch(t time.Time) string {
	sec := float64(t.UnixMicro()) / 1e6
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// ParseBound resolves a relative bound against now: "now", or a signed
// amount with unit y, m (months), w, d or h such as "-5y" or "-1m". A
// YYYY-MM-DD date is accepted as midnight UTC.
func ParseBound(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "now" {
		return now, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid time bound %q", s)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s[:len(s)-1], "+"))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time bound %q", s)
	}
	switch s[len(s)-1] {
	case 'y':
		return now.AddDate(n, 0, 0), nil
	case 'm':
		return now.AddDate(0, n, 0), nil
	case 'w':
		return now.AddDate(0, 0, 7*n), nil
	case 'd':
		return now.AddDate(0, 0, n), nil
	case 'h':
		return now.Add(time.Duration(n) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time bound %q (unit must be y, m, w, d or h)", s)
	}
}
