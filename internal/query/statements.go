package query

import (
	"fmt"
	"strings"

	"userload/internal/storage/sqldb"
)

// Statement names, in execution order.
const (
	SignupCountsByDate          = "signup_counts_by_date"
	DistinctDomains             = "distinct_domains"
	RecentSignups               = "recent_signups"
	TopDomainUsers              = "top_domain_users"
	DeleteNonAllowlistedDomains = "delete_non_allowlisted_domains"
)

// AllowedDomains survive the final cleanup statement.
var AllowedDomains = []string{"gmail.com", "yahoo.com", "example.com"}

// Limit caps every read statement.
const Limit = 10

// Statement is one entry of the fixed query set.
type Statement struct {
	Name string
	SQL  string
	// Mutates marks statements whose outcome is a row count.
	Mutates bool
}

type dialect struct {
	quote func(string) string
	// head and tail cap a SELECT at n rows; one of them returns "".
	head func(n int) string
	tail func(n int) string
	// today and weekAgo are date expressions.
	today   string
	weekAgo string
}

var dialects = map[string]dialect{
	"postgres": {
		quote:   dquote,
		head:    noCap,
		tail:    limitN,
		today:   "CURRENT_DATE",
		weekAgo: "CURRENT_DATE - 7",
	},
	"sqlite": {
		quote:   dquote,
		head:    noCap,
		tail:    limitN,
		today:   "date('now')",
		weekAgo: "date('now', '-7 days')",
	},
	"mysql": {
		quote:   func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		head:    noCap,
		tail:    limitN,
		today:   "CURDATE()",
		weekAgo: "CURDATE() - INTERVAL 7 DAY",
	},
	"mssql": {
		quote:   func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		head:    func(n int) string { return fmt.Sprintf("TOP %d ", n) },
		tail:    noCap,
		today:   "CAST(GETDATE() AS DATE)",
		weekAgo: "DATEADD(day, -7, CAST(GETDATE() AS DATE))",
	},
}

func noCap(int) string { return "" }
func limitN(n int) string { return fmt.Sprintf(" LIMIT %d", n) }
func dquote(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// Dialects lists the supported SQL dialects.
func Dialects() []string {
	return []string{"mssql", "mysql", "postgres", "sqlite"}
}

// Statements renders the fixed query set for dialect against table. The
// cleanup statement is always last.
func Statements(dialectName, table string) ([]Statement, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("query: unsupported dialect %q (want one of %s)", dialectName, strings.Join(Dialects(), ", "))
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("query: table is required")
	}
	t := quoteTable(d, table)

	allowed := make([]string, len(AllowedDomains))
	for i, dom := range AllowedDomains {
		allowed[i] = "'" + dom + "'"
	}

	topDomain := fmt.Sprintf(
		"SELECT %sdomain FROM %s WHERE domain IS NOT NULL GROUP BY domain ORDER BY COUNT(*) DESC, domain ASC%s",
		d.head(1), t, d.tail(1))
	top, limit := d.head(Limit), d.tail(Limit)

	return []Statement{
		{
			Name: SignupCountsByDate,
			SQL: fmt.Sprintf(
				"SELECT %ssignup_date, COUNT(*) AS signups FROM %s GROUP BY signup_date ORDER BY signups DESC, signup_date DESC%s",
				top, t, limit),
		},
		{
			Name: DistinctDomains,
			SQL: fmt.Sprintf(
				"SELECT DISTINCT %sdomain FROM %s ORDER BY domain%s",
				top, t, limit),
		},
		{
			Name: RecentSignups,
			SQL: fmt.Sprintf(
				"SELECT %suser_id, name, email, signup_date, domain FROM %s WHERE signup_date >= %s AND signup_date <= %s ORDER BY signup_date DESC, user_id%s",
				top, t, d.weekAgo, d.today, limit),
		},
		{
			Name: TopDomainUsers,
			SQL: fmt.Sprintf(
				"SELECT %suser_id FROM %s WHERE domain = (%s) ORDER BY user_id%s",
				top, t, topDomain, limit),
		},
		{
			Name: DeleteNonAllowlistedDomains,
			SQL: fmt.Sprintf(
				"DELETE FROM %s WHERE domain IS NULL OR domain NOT IN (%s)",
				t, strings.Join(allowed, ", ")),
			Mutates: true,
		},
	}, nil
}

func quoteTable(d dialect, table string) string {
	schema, name := sqldb.SplitName(table)
	if schema == "" {
		return d.quote(name)
	}
	return d.quote(schema) + "." + d.quote(name)
}
