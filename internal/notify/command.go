package notify

import (
	"fmt"
	"strings"
)

// CommandKind selects the statement a dispatch produces.
type CommandKind int

const (
	CommandInsert CommandKind = iota
	CommandUpdate
)

// String returns the SQL verb for the kind.
func (k CommandKind) String() string {
	switch k {
	case CommandInsert:
		return "INSERT"
	case CommandUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// ParseCommandKind resolves a configured command string, case-insensitive.
// An empty string defaults to INSERT. Anything other than INSERT or UPDATE
// is a configuration error.
func ParseCommandKind(s string) (CommandKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INSERT":
		return CommandInsert, nil
	case "UPDATE":
		return CommandUpdate, nil
	default:
		return 0, &ConfigError{Reason: fmt.Sprintf("command must be INSERT or UPDATE, got %q", s)}
	}
}

// Assignment is one column/value pair of a command, with the declared type
// that produced the value.
type Assignment struct {
	Column string
	Tag    TypeTag
	Value  any
}

// Command is a fully-assembled database command: a table, a kind, and the
// assignments in mapping order. The command does not validate the table or
// columns against any schema; rendering to SQL is the database layer's job.
type Command struct {
	Table       string
	Kind        CommandKind
	Assignments []Assignment
}

// BuildCommand assembles a command from its parts, preserving assignment
// order. It performs no validation.
func BuildCommand(table string, kind CommandKind, assignments []Assignment) Command {
	return Command{Table: table, Kind: kind, Assignments: assignments}
}
