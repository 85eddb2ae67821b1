package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// LogNotifier writes events to a structured logger instead of a database.
// It is useful for audit trails and for wiring up a channel before its
// destination table exists. Like the database dispatcher, it rejects
// attachments.
type LogNotifier struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogNotifier creates a notifier that logs at the given level.
// A nil logger falls back to slog.Default.
func NewLogNotifier(logger *slog.Logger, level slog.Level) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, level: level}
}

// Notify logs the event's fields in sorted key order.
func (n *LogNotifier) Notify(ctx context.Context, event Event, attachments []Attachment) error {
	if len(attachments) > 0 {
		return ErrAttachmentsUnsupported
	}

	keys := make([]string, 0, len(event))
	for k := range event {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, event[k])
	}

	n.logger.Log(ctx, n.level, "notification", args...)
	return nil
}

// ParseLogTarget splits a "name@LEVEL" target into its logger name and
// level. The level part is optional and defaults to INFO.
func ParseLogTarget(target string) (string, slog.Level, error) {
	name, levelPart, found := strings.Cut(target, "@")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, &ConfigError{Reason: fmt.Sprintf("log target %q has no logger name", target)}
	}
	if !found {
		return name, slog.LevelInfo, nil
	}

	level, err := ParseLevel(levelPart)
	if err != nil {
		return "", 0, err
	}
	return name, level, nil
}

// ParseLevel resolves a log level by name or numeric value.
// An unknown level is a configuration error, not a silent default.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return slog.Level(n), nil
	}
	return 0, &ConfigError{Reason: fmt.Sprintf("unknown log level %q", s)}
}
