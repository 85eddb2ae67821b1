package notify

import "strings"

// Interpolate renders a value template against an event, replacing each
// {name} placeholder with the named value. Doubled braces escape to
// literal braces: "{{" renders as "{" and "}}" as "}".
//
// A placeholder with no value in the event, an unterminated "{", a bare
// "}", or an empty "{}" all fail with an *InterpolationError. Rendering is
// all-or-nothing; no partially rendered value is ever returned.
func Interpolate(template string, event Event) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", &InterpolationError{Template: template, Reason: "unterminated '{'"}
			}
			key := template[i+1 : i+1+end]
			if key == "" {
				return "", &InterpolationError{Template: template, Reason: "empty placeholder"}
			}
			if strings.ContainsRune(key, '{') {
				return "", &InterpolationError{Template: template, Reason: "'{' inside placeholder"}
			}
			value, ok := event[key]
			if !ok {
				return "", &InterpolationError{Template: template, Key: key}
			}
			b.WriteString(value)
			i += end + 2

		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", &InterpolationError{Template: template, Reason: "single '}' outside placeholder"}

		default:
			b.WriteByte(template[i])
			i++
		}
	}

	return b.String(), nil
}
