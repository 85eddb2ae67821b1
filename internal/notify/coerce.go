package notify

// coerce.go converts rendered template text into typed values for storage.
//
// Each declared type has exactly one parser. Decimal values go through
// pgtype.Numeric, which keeps the digits exactly as written instead of
// rounding through a binary float. Parsers that reject a value return a
// CoercionError; the string parser never fails, it falls back to the raw
// text when the input is not a quoted literal.

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Layouts for declared date and datetime values. Inputs must match exactly.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// typeAliases maps every accepted type token (lower case) to its tag.
// The set is fixed; mapping lines declaring anything else fail to parse.
var typeAliases = map[string]TypeTag{
	"bool":      TagBoolean,
	"date":      TagDate,
	"date/time": TagDateTime,
	"datetime":  TagDateTime,
	"double":    TagFloat,
	"float":     TagFloat,
	"int":       TagInteger,
	"integer":   TagInteger,
	"none":      TagNull,
	"null":      TagNull,
	"str":       TagString,
	"string":    TagString,
}

// LookupType resolves a type token (case-insensitive) to its TypeTag.
func LookupType(alias string) (TypeTag, bool) {
	tag, ok := typeAliases[strings.ToLower(alias)]
	return tag, ok
}

// Coerce converts input to a typed value for the given tag.
//
// The returned value is one of: int64, pgtype.Numeric, bool, time.Time,
// string, or nil (for TagNull). All of these bind directly as database
// arguments. Failures return a *CoercionError.
func Coerce(input string, tag TypeTag) (any, error) {
	switch tag {
	case TagInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
		if err != nil {
			return nil, &CoercionError{Input: input, Tag: tag, Err: err}
		}
		return n, nil

	case TagFloat:
		return coerceNumeric(input)

	case TagBoolean:
		return coerceBool(input)

	case TagDate:
		t, err := time.Parse(DateLayout, input)
		if err != nil {
			return nil, &CoercionError{Input: input, Tag: tag, Err: err}
		}
		return t, nil

	case TagDateTime:
		t, err := time.Parse(DateTimeLayout, input)
		if err != nil {
			return nil, &CoercionError{Input: input, Tag: tag, Err: err}
		}
		return t, nil

	case TagString:
		return coerceString(input), nil

	case TagNull:
		switch strings.ToLower(input) {
		case "", "null", "none", "nil":
			return nil, nil
		}
		return nil, &CoercionError{Input: input, Tag: tag}

	default:
		return nil, &CoercionError{Input: input, Tag: tag}
	}
}

// coerceNumeric parses a decimal string into pgtype.Numeric.
// The value keeps its exact decimal digits; no binary float is involved.
// Scientific notation is not accepted by pgtype.Numeric.Scan.
func coerceNumeric(input string) (pgtype.Numeric, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return pgtype.Numeric{}, &CoercionError{Input: input, Tag: TagFloat}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, &CoercionError{Input: input, Tag: TagFloat, Err: err}
	}
	return n, nil
}

// coerceBool recognizes the usual true/false tokens, case-insensitive.
func coerceBool(input string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, &CoercionError{Input: input, Tag: TagBoolean}
	}
}

// coerceString unescapes a quoted literal, passing anything else through raw.
// `"line\n"` becomes a string with a real newline; `plain text` stays as is.
func coerceString(input string) string {
	if s, err := strconv.Unquote(input); err == nil {
		return s
	}
	return input
}
