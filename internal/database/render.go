// Package database renders assembled commands into SQL and provides the
// executors that run them.
//
// Rendering is parameterized: values never appear in the SQL text, they
// travel as bind arguments. Identifiers are double-quoted ANSI style, which
// both PostgreSQL and MySQL (with ANSI_QUOTES) accept. The two placeholder
// styles cover the supported drivers: numbered ($1, $2) for pgx and
// anonymous (?) for database/sql drivers.
package database

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/eventsink/internal/notify"
)

// Style selects the bind placeholder syntax for a driver family.
type Style int

const (
	// StyleNumbered renders $1..$n placeholders (PostgreSQL).
	StyleNumbered Style = iota
	// StyleAnonymous renders ? placeholders (MySQL, ODBC).
	StyleAnonymous
)

func (s Style) String() string {
	switch s {
	case StyleNumbered:
		return "numbered"
	case StyleAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// QuoteIdentifier wraps an identifier in double quotes, doubling any
// embedded quote characters. Field names from bracketed mappings can carry
// spaces and punctuation; quoting keeps them intact.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Render turns a command into one SQL statement plus its bind arguments.
//
// INSERT produces INSERT INTO "t" ("a", "b") VALUES (...); UPDATE produces
// UPDATE "t" SET "a" = ..., "b" = ... with no row filter, matching the
// declared command exactly. A command with no table or no assignments
// cannot be rendered.
func Render(cmd notify.Command, style Style) (string, []any, error) {
	if strings.TrimSpace(cmd.Table) == "" {
		return "", nil, &notify.ConfigError{Reason: "command has no table"}
	}
	if len(cmd.Assignments) == 0 {
		return "", nil, &notify.ConfigError{Reason: "command has no assignments"}
	}

	args := make([]any, len(cmd.Assignments))
	for i, a := range cmd.Assignments {
		args[i] = a.Value
	}

	var b strings.Builder
	switch cmd.Kind {
	case notify.CommandInsert:
		b.WriteString("INSERT INTO ")
		b.WriteString(QuoteIdentifier(cmd.Table))
		b.WriteString(" (")
		for i, a := range cmd.Assignments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(QuoteIdentifier(a.Column))
		}
		b.WriteString(") VALUES (")
		for i := range cmd.Assignments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(style, i+1))
		}
		b.WriteString(")")

	case notify.CommandUpdate:
		b.WriteString("UPDATE ")
		b.WriteString(QuoteIdentifier(cmd.Table))
		b.WriteString(" SET ")
		for i, a := range cmd.Assignments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(QuoteIdentifier(a.Column))
			b.WriteString(" = ")
			b.WriteString(placeholder(style, i+1))
		}

	default:
		return "", nil, &notify.ConfigError{Reason: "unknown command kind"}
	}

	return b.String(), args, nil
}

func placeholder(style Style, n int) string {
	if style == StyleNumbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
