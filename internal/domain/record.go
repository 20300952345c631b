// Package domain holds the user record types that flow through the loader:
// RawRecord as read from the CSV, CleanRecord as written to the users table.
package domain

import "time"

// DateLayout is the canonical rendering of a signup date.
const DateLayout = "2006-01-02"

// Columns is the destination column order used by every storage backend.
var Columns = []string{"user_id", "name", "email", "signup_date", "domain"}

// RawRecord is one unvalidated CSV data line.
type RawRecord struct {
	Line       int // 1-based physical line in the source (header is line 1)
	UserID     string
	Name       string
	Email      string
	SignupDate string
}

// CleanRecord is a validated, normalized row ready for persistence.
type CleanRecord struct {
	UserID     int64     `db:"user_id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	SignupDate time.Time `db:"signup_date"` // midnight UTC
	Domain     string    `db:"domain"`

	// Line is carried for failure reports; it is not persisted.
	Line int `db:"-"`
}

// SignupDay renders SignupDate as YYYY-MM-DD.
func (r CleanRecord) SignupDay() string {
	return r.SignupDate.Format(DateLayout)
}

// Values returns the row positionally aligned to Columns. The date is
// rendered as text; backends with a native date type use DateValues.
func (r CleanRecord) Values() []any {
	return []any{r.UserID, r.Name, r.Email, r.SignupDay(), r.Domain}
}

// DateValues is Values with signup_date as time.Time.
func (r CleanRecord) DateValues() []any {
	return []any{r.UserID, r.Name, r.Email, r.SignupDate, r.Domain}
}
