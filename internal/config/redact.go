package config

import (
	"net/url"
	"regexp"
	"strings"
)

var kvPassword = regexp.MustCompile(`(?i)((?:password|pwd)\s*=\s*)[^;\s]*`)

// RedactDSN hides any password embedded in dsn so it can be logged.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	// go-sql-driver form: user:pass@tcp(host)/db
	if at := strings.LastIndex(dsn, "@"); at > 0 && !strings.Contains(dsn[:at], "=") {
		if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
			return dsn[:colon+1] + "xxxxx" + dsn[at:]
		}
	}
	return kvPassword.ReplaceAllString(dsn, "${1}xxxxx")
}
