package notify

import (
	"errors"
	"testing"
)

// ----------------------------------------------------------------------------
// Interpolate Tests
// ----------------------------------------------------------------------------

func TestInterpolate(t *testing.T) {
	event := Event{
		"id":     "42",
		"name":   "pump-3",
		"status": "down",
		"braces": "{literal}",
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		// Valid
		{name: "single placeholder", template: "{id}", want: "42"},
		{name: "placeholder with text", template: "device {name} is {status}", want: "device pump-3 is down"},
		{name: "adjacent placeholders", template: "{id}{status}", want: "42down"},
		{name: "no placeholders", template: "constant", want: "constant"},
		{name: "empty template", template: "", want: ""},
		{name: "repeated placeholder", template: "{id}-{id}", want: "42-42"},

		// Escapes
		{name: "escaped open brace", template: "{{", want: "{"},
		{name: "escaped close brace", template: "}}", want: "}"},
		{name: "escaped pair around text", template: "{{literal}}", want: "{literal}"},
		{name: "escape next to placeholder", template: "{{{id}}}", want: "{42}"},

		// Values are inserted literally, never re-expanded
		{name: "value containing braces", template: "{braces}", want: "{literal}"},

		// Invalid
		{name: "missing placeholder", template: "{absent}", wantErr: true},
		{name: "unterminated brace", template: "{id", wantErr: true},
		{name: "empty placeholder", template: "{}", wantErr: true},
		{name: "bare closing brace", template: "id}", wantErr: true},
		{name: "open brace inside placeholder", template: "{a{id}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.template, event)
			if (err != nil) != tt.wantErr {
				t.Errorf("Interpolate(%q) error = %v, wantErr %v", tt.template, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				var ierr *InterpolationError
				if !errors.As(err, &ierr) {
					t.Errorf("Interpolate(%q) error type = %T, want *InterpolationError", tt.template, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestInterpolateAllOrNothing(t *testing.T) {
	// The first placeholder resolves, the second does not. The whole render
	// must fail with the missing key named; no partial value leaks out.
	got, err := Interpolate("{id} by {missing}", Event{"id": "42"})
	if err == nil {
		t.Fatal("Interpolate() error = nil, want missing placeholder error")
	}
	if got != "" {
		t.Errorf("Interpolate() = %q on error, want empty string", got)
	}

	var ierr *InterpolationError
	if !errors.As(err, &ierr) {
		t.Fatalf("Interpolate() error type = %T, want *InterpolationError", err)
	}
	if ierr.Key != "missing" {
		t.Errorf("InterpolationError.Key = %q, want %q", ierr.Key, "missing")
	}
}

func TestInterpolateNilEvent(t *testing.T) {
	// A nil event renders constant templates but has no values to offer.
	got, err := Interpolate("constant", nil)
	if err != nil {
		t.Fatalf("Interpolate(constant, nil) error = %v", err)
	}
	if got != "constant" {
		t.Errorf("Interpolate(constant, nil) = %q, want %q", got, "constant")
	}

	if _, err := Interpolate("{id}", nil); err == nil {
		t.Error("Interpolate({id}, nil) error = nil, want missing placeholder error")
	}
}
