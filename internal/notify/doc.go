// Package notify turns runtime notification events into persisted database
// records.
//
// The package is the heart of the event sink, containing all domain logic
// independent of any transport layer. It can be driven by HTTP handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a small set of concepts:
//
//   - Field mappings: one declarative line per destination column, parsed by
//     [ParseMappingLine] into a [FieldMapping] (declared type, column name,
//     value template).
//   - Coercion: [Coerce] converts interpolated text into a typed value for
//     its declared [TypeTag]. Decimal values use pgtype.Numeric so they are
//     stored exactly as written.
//   - Dispatch: a [Dispatcher] interpolates each field template against an
//     [Event], coerces the results, assembles a [Command], and hands it to
//     its [Executor].
//   - Channels: named notifiers registered via [Register]. A channel is
//     either a database-backed [Dispatcher] or a [LogNotifier].
//   - Service: the entry point for callers. It resolves channels, enforces
//     the concurrency limit, suppresses duplicate idempotency keys, and
//     records every outcome in the dispatch history.
//
// # Field Mappings
//
// A mapping line reads as "type name: template":
//
//	string Name: {name}
//	nullable integer Count: {count}
//	nullable string [Full Name]: {first} {last}
//
// Column names containing whitespace are bracketed. The optional nullable
// prefix lets an empty, "none", or "null" value become an SQL NULL instead
// of a coercion failure.
//
// # Error Handling
//
// Failures surface synchronously as typed errors: [ConfigError] and
// [MappingError] at channel construction time, [InterpolationError],
// [CoercionError], and [ErrAttachmentsUnsupported] at dispatch time.
// Executor errors propagate unwrapped in meaning; nothing is swallowed.
// [MapError] maps any of these to a user-facing message with a support code.
//
// # Dispatch History
//
// Every dispatch, successful or not, is recorded in a fixed-size in-memory
// [History] ring together with monotonic counters. Subscribers receive each
// [DispatchRecord] as it is recorded, which feeds the live websocket feed.
package notify
