package notify

// parse.go implements the mapping-line grammar as an explicit state machine.
//
// A mapping line has the shape
//
//	[nullable] <type> <name>: <template>
//
// where <name> is either a bare token or a [bracketed] region for names
// containing whitespace. Inside brackets, ':' is literal; outside, the
// first ':' ends the name and everything after it is the value template.
// The scanner exists so bracket and colon handling stay auditable instead
// of being buried in string slicing.

import (
	"fmt"
	"strings"
	"unicode"
)

const nullableKeyword = "nullable"

// scanState is the parser position within a mapping line.
type scanState int

const (
	scanType scanState = iota
	scanName
	inBracket
	scanTemplate
)

// ParseMappingLine parses a single mapping line into a FieldMapping.
// Any grammar violation returns a *MappingError naming the offending line.
func ParseMappingLine(line string) (FieldMapping, error) {
	rest := strings.TrimSpace(line)
	if rest == "" {
		return FieldMapping{}, &MappingError{Line: line, Reason: "empty mapping line"}
	}

	var m FieldMapping

	// Optional nullable prefix: a leading whitespace-delimited token.
	token := rest
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		token = rest[:i]
	}
	if strings.EqualFold(token, nullableKeyword) {
		m.Nullable = true
		rest = strings.TrimSpace(rest[len(token):])
		if rest == "" {
			return FieldMapping{}, &MappingError{Line: line, Reason: "missing type after nullable"}
		}
	}

	var (
		state    = scanType
		typeBuf  strings.Builder
		nameBuf  strings.Builder
		tmplBuf  strings.Builder
		nameDone bool
	)

	for _, r := range rest {
		switch state {
		case scanType:
			// The type token runs to the first whitespace.
			if unicode.IsSpace(r) {
				if typeBuf.Len() == 0 {
					continue
				}
				state = scanName
				continue
			}
			typeBuf.WriteRune(r)

		case scanName:
			switch {
			case r == ':':
				state = scanTemplate
			case unicode.IsSpace(r):
				if nameBuf.Len() > 0 {
					nameDone = true
				}
			case nameDone:
				return FieldMapping{}, &MappingError{
					Line:   line,
					Reason: fmt.Sprintf("unexpected %q after field name", r),
				}
			case r == '[':
				if nameBuf.Len() > 0 {
					return FieldMapping{}, &MappingError{
						Line:   line,
						Reason: "'[' is only valid at the start of a field name",
					}
				}
				state = inBracket
			case r == ']':
				return FieldMapping{}, &MappingError{Line: line, Reason: "']' without matching '['"}
			default:
				nameBuf.WriteRune(r)
			}

		case inBracket:
			// Everything except the closing bracket is part of the name,
			// colons included.
			if r == ']' {
				state = scanName
				nameDone = true
				continue
			}
			nameBuf.WriteRune(r)

		case scanTemplate:
			tmplBuf.WriteRune(r)
		}
	}

	switch state {
	case scanType:
		return FieldMapping{}, &MappingError{Line: line, Reason: "missing field name"}
	case scanName:
		return FieldMapping{}, &MappingError{Line: line, Reason: "missing ':' before value template"}
	case inBracket:
		return FieldMapping{}, &MappingError{Line: line, Reason: "unterminated '[' in field name"}
	}

	typeToken := typeBuf.String()
	tag, ok := LookupType(typeToken)
	if !ok {
		return FieldMapping{}, &MappingError{
			Line:   line,
			Reason: fmt.Sprintf("unknown type %q", strings.ToLower(typeToken)),
		}
	}

	m.Name = strings.TrimSpace(nameBuf.String())
	if m.Name == "" {
		return FieldMapping{}, &MappingError{Line: line, Reason: "empty field name"}
	}

	m.Tag = tag
	m.Template = strings.TrimSpace(tmplBuf.String())
	if m.Template == "" {
		return FieldMapping{}, &MappingError{Line: line, Reason: "empty value template"}
	}

	return m, nil
}

// ParseFieldMappings parses a multi-line block of mapping lines.
// Blank lines are skipped. The first bad line aborts with its line number.
func ParseFieldMappings(block string) ([]FieldMapping, error) {
	var mappings []FieldMapping
	for i, raw := range strings.Split(block, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		m, err := ParseMappingLine(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}
