package transformer

import (
	"strings"
	"unicode"
)

// ValidEmail checks local-part "@" domain syntax, splitting on the last "@".
// The local part must be non-empty; the domain must contain at least one dot
// and no empty labels. Whitespace anywhere rejects the address.
func ValidEmail(email string) bool {
	if email == "" || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return false
	}
	host := email[at+1:]
	if !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
	}
	return true
}

// Domain returns the lower-cased text after the last "@" of email, or "" when
// there is no "@".
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
