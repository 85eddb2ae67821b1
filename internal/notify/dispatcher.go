package notify

// dispatcher.go walks a Spec's field mappings for one event: render the
// template, apply the nullable override, coerce, and only when every field
// has a value hand the assembled command to the executor. A failure in any
// field aborts the dispatch; no partial command ever reaches the database.

import (
	"context"
	"fmt"
	"strings"
)

// Dispatcher persists notification events into one database destination.
// It is stateless between dispatches and safe for concurrent use; callers
// that need serialized execution provide it at the executor or above.
type Dispatcher struct {
	spec Spec
	exec Executor
}

// NewDispatcher binds a spec to an executor.
// The spec must name a table and carry at least one field mapping.
func NewDispatcher(spec Spec, exec Executor) (*Dispatcher, error) {
	if strings.TrimSpace(spec.Table) == "" {
		return nil, &ConfigError{Reason: "destination table is required"}
	}
	if len(spec.Fields) == 0 {
		return nil, &ConfigError{Reason: "at least one field mapping is required"}
	}
	if exec == nil {
		return nil, &ConfigError{Reason: "executor is required"}
	}
	return &Dispatcher{spec: spec, exec: exec}, nil
}

// Spec returns the dispatcher's spec.
func (d *Dispatcher) Spec() Spec { return d.spec }

// Notify renders, coerces, and executes one event.
//
// Fields are processed in mapping order. For a nullable field, a rendered
// value of "", "none", or "null" (case-insensitive) becomes an SQL NULL and
// skips coercion entirely; everything else, nullable or not, must coerce to
// the field's declared type. Executor errors propagate to the caller
// unchanged.
func (d *Dispatcher) Notify(ctx context.Context, event Event, attachments []Attachment) error {
	if len(attachments) > 0 {
		return ErrAttachmentsUnsupported
	}

	assignments := make([]Assignment, 0, len(d.spec.Fields))
	for _, f := range d.spec.Fields {
		rendered, err := Interpolate(f.Template, event)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}

		var value any
		if f.Nullable && isNullOverride(rendered) {
			value = nil
		} else {
			value, err = Coerce(rendered, f.Tag)
			if err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}

		assignments = append(assignments, Assignment{Column: f.Name, Tag: f.Tag, Value: value})
	}

	return d.exec.Execute(ctx, BuildCommand(d.spec.Table, d.spec.Kind, assignments))
}

// isNullOverride reports whether a rendered value means "store NULL" for a
// nullable field. Note "nil" is not in this set; it is only accepted by the
// null type itself.
func isNullOverride(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "null":
		return true
	}
	return false
}
