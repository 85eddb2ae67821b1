// Package channels loads the channel declaration file and binds it into
// the live channel registry.
//
// The file declares named database connections and the channels that
// dispatch into them. Binding parses every field mapping, resolves command
// kinds, opens the referenced connections, and registers one notifier per
// channel. All of it happens at startup; a declaration problem stops the
// process before any event is accepted.
package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/eventsink/internal/notify"
)

// Connection declares one database destination.
type Connection struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ChannelConfig declares one channel. SQL channels carry a table, an
// optional command kind, and a block of field mapping lines; log channels
// carry a logger target instead.
type ChannelConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Table      string `yaml:"table"`
	Command    string `yaml:"command"`
	Connection string `yaml:"connection"`
	Fields     string `yaml:"fields"`
	Logger     string `yaml:"logger"`
	Level      string `yaml:"level"`
}

// File is the parsed channel declaration file.
type File struct {
	Connections map[string]Connection `yaml:"connections"`
	Channels    []ChannelConfig       `yaml:"channels"`
}

// Load reads and parses a channel declaration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}
	return Parse(data)
}

// Parse decodes the YAML declaration and expands ${VAR} references in
// connection DSNs from the environment. Field mapping blocks are left
// untouched; their braces belong to value templates.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &notify.ConfigError{Reason: "channels file is not valid YAML", Err: err}
	}

	for name, conn := range f.Connections {
		conn.DSN = os.ExpandEnv(conn.DSN)
		conn.Driver = strings.ToLower(strings.TrimSpace(conn.Driver))
		f.Connections[name] = conn
	}
	return &f, nil
}

// OpenFunc opens an executor for a declared connection. Bind calls it once
// per connection actually referenced by a channel.
type OpenFunc func(ctx context.Context, name string, conn Connection) (notify.Executor, error)

// Set is the bound result: registered channels plus the executors they
// share, keyed by connection name.
type Set struct {
	Channels    []notify.Channel
	Connections map[string]notify.Executor
}

// Close closes every opened connection that supports closing.
func (s *Set) Close() error {
	var errs []error
	for name, exec := range s.Connections {
		if closer, ok := exec.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close connection %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Bind turns a declaration file into registered channels.
//
// Connections open lazily through open, one executor per connection name,
// shared by every channel that references it. A channel without an explicit
// connection binds to the file's only connection; with several declared the
// reference must be explicit. On any failure Bind closes what it opened and
// registers nothing.
func Bind(ctx context.Context, f *File, open OpenFunc, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	set := &Set{Connections: make(map[string]notify.Executor)}
	bound := false
	defer func() {
		if !bound {
			set.Close()
		}
	}()

	seen := make(map[string]bool)
	for _, c := range f.Channels {
		if strings.TrimSpace(c.Name) == "" {
			return nil, &notify.ConfigError{Reason: "channel with no name"}
		}
		if seen[c.Name] {
			return nil, &notify.ConfigError{Reason: fmt.Sprintf("duplicate channel %q", c.Name)}
		}
		if _, exists := notify.Get(c.Name); exists {
			return nil, &notify.ConfigError{Reason: fmt.Sprintf("channel %q already registered", c.Name)}
		}
		seen[c.Name] = true

		var (
			ch  notify.Channel
			err error
		)
		switch strings.ToLower(strings.TrimSpace(c.Kind)) {
		case "", string(notify.KindSQL):
			ch, err = bindSQL(ctx, f, c, open, set)
		case string(notify.KindLog):
			ch, err = bindLog(c, logger)
		default:
			err = &notify.ConfigError{Reason: fmt.Sprintf("channel %q: unknown kind %q", c.Name, c.Kind)}
		}
		if err != nil {
			return nil, err
		}
		set.Channels = append(set.Channels, ch)
	}

	for _, ch := range set.Channels {
		notify.Register(ch)
	}
	bound = true

	return set, nil
}

func bindSQL(ctx context.Context, f *File, c ChannelConfig, open OpenFunc, set *Set) (notify.Channel, error) {
	fields, err := notify.ParseFieldMappings(c.Fields)
	if err != nil {
		return notify.Channel{}, &notify.ConfigError{
			Reason: fmt.Sprintf("channel %q field mappings", c.Name),
			Err:    err,
		}
	}
	if len(fields) == 0 {
		return notify.Channel{}, &notify.ConfigError{Reason: fmt.Sprintf("channel %q has no field mappings", c.Name)}
	}

	kind, err := notify.ParseCommandKind(c.Command)
	if err != nil {
		return notify.Channel{}, fmt.Errorf("channel %q: %w", c.Name, err)
	}

	connName, err := resolveConnection(f, c)
	if err != nil {
		return notify.Channel{}, err
	}

	exec, ok := set.Connections[connName]
	if !ok {
		exec, err = open(ctx, connName, f.Connections[connName])
		if err != nil {
			return notify.Channel{}, fmt.Errorf("channel %q: %w", c.Name, err)
		}
		set.Connections[connName] = exec
	}

	spec := notify.Spec{Table: c.Table, Kind: kind, Fields: fields}
	dispatcher, err := notify.NewDispatcher(spec, exec)
	if err != nil {
		return notify.Channel{}, fmt.Errorf("channel %q: %w", c.Name, err)
	}

	return notify.Channel{
		Name:       c.Name,
		Kind:       notify.KindSQL,
		Connection: connName,
		Spec:       spec,
		Notifier:   dispatcher,
	}, nil
}

func bindLog(c ChannelConfig, base *slog.Logger) (notify.Channel, error) {
	if strings.TrimSpace(c.Logger) == "" {
		return notify.Channel{}, &notify.ConfigError{Reason: fmt.Sprintf("log channel %q has no logger", c.Name)}
	}

	name, level, err := notify.ParseLogTarget(c.Logger)
	if err != nil {
		return notify.Channel{}, fmt.Errorf("channel %q: %w", c.Name, err)
	}
	// An explicit level key wins over the @LEVEL suffix.
	if c.Level != "" {
		level, err = notify.ParseLevel(c.Level)
		if err != nil {
			return notify.Channel{}, fmt.Errorf("channel %q: %w", c.Name, err)
		}
	}

	return notify.Channel{
		Name:     c.Name,
		Kind:     notify.KindLog,
		Logger:   name,
		Notifier: notify.NewLogNotifier(base.With("logger", name), level),
	}, nil
}

func resolveConnection(f *File, c ChannelConfig) (string, error) {
	if c.Connection != "" {
		if _, ok := f.Connections[c.Connection]; !ok {
			return "", &notify.ConfigError{
				Reason: fmt.Sprintf("channel %q references unknown connection %q", c.Name, c.Connection),
			}
		}
		return c.Connection, nil
	}

	switch len(f.Connections) {
	case 0:
		return "", &notify.ConfigError{Reason: fmt.Sprintf("channel %q needs a connection but none are declared", c.Name)}
	case 1:
		for name := range f.Connections {
			return name, nil
		}
	}
	return "", &notify.ConfigError{
		Reason: fmt.Sprintf("channel %q must name a connection, %d are declared", c.Name, len(f.Connections)),
	}
}
