package notify

// errors.go defines the typed errors raised by the dispatch pipeline.
//
// Configuration problems (bad mapping lines, unknown types, invalid command
// kinds) surface when a channel is built, never at dispatch time. Dispatch
// problems (missing placeholders, values that fail coercion, attachments)
// surface synchronously from Notify. Executor errors pass through unchanged
// so callers can inspect driver-specific failures.

import (
	"errors"
	"fmt"
)

// ErrAttachmentsUnsupported is returned when a dispatch carries attachments.
// Database channels persist field values only; there is nowhere to put a file.
var ErrAttachmentsUnsupported = errors.New("attachments are not supported by this channel")

// ErrChannelNotFound is returned when a dispatch names an unregistered channel.
var ErrChannelNotFound = errors.New("channel not found")

// ConfigError reports an invalid channel configuration.
// It wraps the underlying cause (often a MappingError) when there is one.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Reason, e.Err)
	}
	return "invalid configuration: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MappingError reports a mapping line that violates the grammar.
// It is always a configuration-time failure: loaders wrap it in a
// ConfigError carrying the channel context.
type MappingError struct {
	Line   string // the offending line, as given
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid field mapping %q: %s", e.Line, e.Reason)
}

// InterpolationError reports a value template that could not be rendered
// against the event. Key names the missing placeholder when that is the cause.
type InterpolationError struct {
	Template string
	Key      string
	Reason   string
}

func (e *InterpolationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cannot render template %q: no value for placeholder %q", e.Template, e.Key)
	}
	return fmt.Sprintf("cannot render template %q: %s", e.Template, e.Reason)
}

// CoercionError reports a rendered value that does not parse as its
// declared type.
type CoercionError struct {
	Input string
	Tag   TypeTag
	Err   error
}

func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot coerce %q to %s: %v", e.Input, e.Tag, e.Err)
	}
	return fmt.Sprintf("cannot coerce %q to %s", e.Input, e.Tag)
}

func (e *CoercionError) Unwrap() error { return e.Err }
