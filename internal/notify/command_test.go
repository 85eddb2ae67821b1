package notify

import (
	"errors"
	"testing"
)

// ----------------------------------------------------------------------------
// ParseCommandKind Tests
// ----------------------------------------------------------------------------

func TestParseCommandKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CommandKind
		wantErr bool
	}{
		{name: "insert", input: "INSERT", want: CommandInsert},
		{name: "update", input: "UPDATE", want: CommandUpdate},
		{name: "lowercase insert", input: "insert", want: CommandInsert},
		{name: "mixed case update", input: "Update", want: CommandUpdate},
		{name: "padded insert", input: "  insert  ", want: CommandInsert},
		{name: "empty defaults to insert", input: "", want: CommandInsert},

		{name: "delete is rejected", input: "DELETE", wantErr: true},
		{name: "upsert is rejected", input: "UPSERT", wantErr: true},
		{name: "garbage is rejected", input: "go fish", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommandKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCommandKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				var cerr *ConfigError
				if !errors.As(err, &cerr) {
					t.Errorf("ParseCommandKind(%q) error type = %T, want *ConfigError", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCommandKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCommandKindString(t *testing.T) {
	if got := CommandInsert.String(); got != "INSERT" {
		t.Errorf("CommandInsert.String() = %q, want %q", got, "INSERT")
	}
	if got := CommandUpdate.String(); got != "UPDATE" {
		t.Errorf("CommandUpdate.String() = %q, want %q", got, "UPDATE")
	}
}

// ----------------------------------------------------------------------------
// BuildCommand Tests
// ----------------------------------------------------------------------------

func TestBuildCommandPreservesOrder(t *testing.T) {
	assignments := []Assignment{
		{Column: "c", Tag: TagString, Value: "last"},
		{Column: "a", Tag: TagInteger, Value: int64(1)},
		{Column: "b", Tag: TagBoolean, Value: true},
	}

	cmd := BuildCommand("events", CommandInsert, assignments)

	if cmd.Table != "events" {
		t.Errorf("Command.Table = %q, want %q", cmd.Table, "events")
	}
	if cmd.Kind != CommandInsert {
		t.Errorf("Command.Kind = %v, want %v", cmd.Kind, CommandInsert)
	}
	for i, a := range cmd.Assignments {
		if a.Column != assignments[i].Column {
			t.Errorf("Assignments[%d].Column = %q, want %q", i, a.Column, assignments[i].Column)
		}
	}
}

func TestBuildCommandNoValidation(t *testing.T) {
	// Assembly is mechanical. An empty table or nil assignments pass
	// through; rendering layers decide what to reject.
	cmd := BuildCommand("", CommandUpdate, nil)
	if cmd.Table != "" || cmd.Assignments != nil {
		t.Errorf("BuildCommand() = %+v, want empty passthrough", cmd)
	}
}
