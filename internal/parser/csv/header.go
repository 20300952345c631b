package csv

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Expected header fields, in canonical order.
const (
	FieldUserID     = "user_id"
	FieldName       = "name"
	FieldEmail      = "email"
	FieldSignupDate = "signup_date"
)

var expectedFields = [...]string{FieldUserID, FieldName, FieldEmail, FieldSignupDate}

// normalizeHeader maps a raw header cell onto its canonical key: trimmed,
// accent-folded, lower-cased, inner spaces and dashes replaced by '_'.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, h); err == nil {
		h = folded
	}
	h = strings.ToLower(h)
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

// mapHeader returns, for each expected field, its index in the source header.
// The header must name exactly the four expected fields, in any order.
func mapHeader(hdr []string) ([len(expectedFields)]int, error) {
	var idx [len(expectedFields)]int
	for i := range idx {
		idx[i] = -1
	}

	hdr = StripHeaderBOM(hdr)
	if len(hdr) != len(expectedFields) {
		return idx, fmt.Errorf("%w: got %d columns %q, want %q",
			ErrHeader, len(hdr), hdr, expectedFields)
	}

	seen := make(map[string]int, len(hdr))
	for i, h := range hdr {
		seen[normalizeHeader(h)] = i
	}

	var missing []string
	for f, name := range expectedFields {
		si, ok := seen[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[f] = si
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: missing %s", ErrHeader, strings.Join(missing, ", "))
	}
	return idx, nil
}
