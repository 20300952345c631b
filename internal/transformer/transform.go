// Package transformer turns RawRecords into CleanRecords.
//
// A bad row is never an error: Transform returns a Result that either carries
// the CleanRecord or names the reason the row was dropped. Only structural
// parse failures (from the CSV reader) stop a run.
package transformer

import (
	"strconv"
	"strings"

	"userload/internal/domain"
)

// DropReason names why a row did not become a CleanRecord.
type DropReason string

const (
	DropInvalidDate   DropReason = "invalid_date"
	DropInvalidEmail  DropReason = "invalid_email"
	DropInvalidUserID DropReason = "invalid_user_id"
)

// Reasons lists every DropReason in evaluation order.
var Reasons = []DropReason{DropInvalidDate, DropInvalidEmail, DropInvalidUserID}

// Result is the outcome of transforming one row.
type Result struct {
	Record domain.CleanRecord
	Reason DropReason // empty when the row was accepted
}

// Dropped reports whether the row was excluded.
func (r Result) Dropped() bool { return r.Reason != "" }

// Transform validates, normalizes and enriches one raw row. Checks run in a
// fixed order (date, email, user_id); the first failure decides the reason.
func Transform(raw domain.RawRecord) Result {
	day, ok := ParseSignupDate(raw.SignupDate)
	if !ok {
		return Result{Reason: DropInvalidDate}
	}

	if !ValidEmail(raw.Email) {
		return Result{Reason: DropInvalidEmail}
	}
	dom := Domain(raw.Email)

	id, err := strconv.ParseInt(strings.TrimSpace(raw.UserID), 10, 64)
	if err != nil {
		return Result{Reason: DropInvalidUserID}
	}

	return Result{Record: domain.CleanRecord{
		UserID:     id,
		Name:       raw.Name,
		Email:      raw.Email,
		SignupDate: day,
		Domain:     dom,
		Line:       raw.Line,
	}}
}
