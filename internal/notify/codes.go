package notify

// codes.go maps technical errors to user-facing messages with support codes.
//
// Error codes are grouped by category:
//
//	CH001  - Unknown channel: the named channel is not registered
//	CH002  - Invalid configuration: channel or mapping config rejected
//	TPL001 - Template error: a placeholder could not be rendered
//	COE001 - Coercion error: a value does not match its declared type
//	ATT001 - Attachments: this channel cannot carry attachments
//	DSP001 - System busy: too many dispatches in progress
//	DSP002 - Duplicate: idempotency key already dispatched
//	DB001  - Connection refused: destination database unreachable
//	DB002  - Timeout: destination did not respond in time
//	DB003  - Constraint: the database rejected the record
//	ERR000 - Unknown error (fallback)
//
// Typed errors match first via errors.As/Is; the string patterns below
// catch driver errors that carry no type we know. Patterns are matched
// case-insensitively with strings.Contains, first match wins, so more
// specific patterns come before general ones.

import (
	"errors"
	"strings"
)

// UserMessage provides user-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the destination database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The dispatch timed out",
			Action:  "Check the destination database and try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The dispatch timed out",
			Action:  "Check the destination database and try again",
			Code:    "DB002",
		},
	},
	// Database constraints
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "The database rejected the record as a duplicate",
			Action:  "Check the destination table's unique keys",
			Code:    "DB003",
		},
	},
	{
		pattern: "constraint",
		msg: UserMessage{
			Message: "The database rejected the record",
			Action:  "Check the destination table's constraints",
			Code:    "DB003",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message.
// Typed dispatch errors map directly; anything else falls back to pattern
// matching over the error text.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrChannelNotFound):
		return UserMessage{
			Message: "Unknown notification channel",
			Action:  "Check the channel name against the configured channels",
			Code:    "CH001",
		}
	case errors.Is(err, ErrAttachmentsUnsupported):
		return UserMessage{
			Message: "This channel cannot carry attachments",
			Action:  "Send the event without attachments",
			Code:    "ATT001",
		}
	case errors.Is(err, ErrTooManyDispatches):
		return UserMessage{
			Message: "System is busy processing other dispatches",
			Action:  "Please wait a moment and try again",
			Code:    "DSP001",
		}
	}

	var interpErr *InterpolationError
	if errors.As(err, &interpErr) {
		return UserMessage{
			Message: "A value template could not be rendered",
			Action:  "Ensure the event carries every placeholder the channel's templates use",
			Code:    "TPL001",
		}
	}

	var coercionErr *CoercionError
	if errors.As(err, &coercionErr) {
		return UserMessage{
			Message: "A value does not match its declared type",
			Action:  "Check the event values against the channel's field types",
			Code:    "COE001",
		}
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return UserMessage{
			Message: "The channel configuration is invalid",
			Action:  "Review the channel definition in the channels file",
			Code:    "CH002",
		}
	}

	var mappingErr *MappingError
	if errors.As(err, &mappingErr) {
		return UserMessage{
			Message: "A field mapping line is invalid",
			Action:  "Review the channel's field mappings",
			Code:    "CH002",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether an error maps to a specific code rather
// than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
