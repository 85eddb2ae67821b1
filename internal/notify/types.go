package notify

import (
	"context"
	"time"
)

// TypeTag identifies the declared type of a mapped field.
// The set is closed: every mapping line must declare one of these.
type TypeTag int

const (
	TagInteger TypeTag = iota
	TagFloat
	TagBoolean
	TagDate
	TagDateTime
	TagString
	TagNull
)

// String returns the canonical lower-case name for the tag.
func (t TypeTag) String() string {
	switch t {
	case TagInteger:
		return "integer"
	case TagFloat:
		return "float"
	case TagBoolean:
		return "boolean"
	case TagDate:
		return "date"
	case TagDateTime:
		return "datetime"
	case TagString:
		return "string"
	case TagNull:
		return "null"
	default:
		return "unknown"
	}
}

// Event is the payload of a notification: placeholder name -> string value.
// Values are raw text; typing happens per field at dispatch time.
type Event map[string]string

// Attachment is a file that a caller tried to send along with an event.
// The dispatcher has no representation for attachments and rejects any
// dispatch that carries one.
type Attachment struct {
	Name string
	Data []byte
}

// FieldMapping binds one destination column to a value template.
type FieldMapping struct {
	Name     string  // destination column name
	Tag      TypeTag // declared type for coercion
	Template string  // value template with {placeholder} references
	Nullable bool    // empty/"none"/"null" values become SQL NULL
}

// Spec describes everything a Dispatcher needs about its destination:
// the table, the command kind, and the ordered field mappings.
// A Spec is immutable once built.
type Spec struct {
	Table  string
	Kind   CommandKind
	Fields []FieldMapping
}

// Notifier delivers a notification event to a destination.
type Notifier interface {
	Notify(ctx context.Context, event Event, attachments []Attachment) error
}

// Executor runs a fully-built command against a database.
// Implementations live in internal/database; they own connection pooling,
// placeholder dialects, and transaction semantics.
type Executor interface {
	Execute(ctx context.Context, cmd Command) error
}

// Pinger is implemented by executors that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IdempotencyStore suppresses repeat dispatches that share a key.
// Once reports whether the key is being seen for the first time within ttl.
type IdempotencyStore interface {
	Once(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
