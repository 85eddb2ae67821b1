// Package sqldriver executes commands through database/sql, covering the
// MySQL and ODBC destinations. Placeholders are anonymous (?), identifiers
// are ANSI double-quoted, so MySQL connections must run with ANSI_QUOTES;
// Open adds the mode to the DSN when it is missing.
package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/alexbrainman/odbc"   // side-effect
	_ "github.com/go-sql-driver/mysql" // side-effect

	"github.com/JonMunkholm/eventsink/internal/database"
	"github.com/JonMunkholm/eventsink/internal/notify"
)

// Supported driver names for Open.
const (
	DriverMySQL = "mysql"
	DriverODBC  = "odbc"
)

// Config carries pool settings. Zero values keep the database/sql defaults.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Executor runs rendered commands on a database/sql handle.
type Executor struct {
	db *sql.DB
}

// Open creates a pooled handle for the configured driver. Connections are
// established lazily; call Ping to verify reachability.
func Open(cfg Config) (*Executor, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverMySQL:
		dsn = mysqlDSN(dsn)
	case DriverODBC:
	default:
		return nil, &notify.ConfigError{Reason: fmt.Sprintf("unsupported driver %q", cfg.Driver)}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Executor{db: db}, nil
}

// mysqlDSN makes sure the session parses time columns and accepts ANSI
// double-quoted identifiers.
func mysqlDSN(dsn string) string {
	for _, param := range []string{"parseTime=true", "sql_mode=ANSI_QUOTES"} {
		key := param[:strings.IndexByte(param, '=')]
		if strings.Contains(dsn, key+"=") {
			continue
		}
		if strings.ContainsRune(dsn, '?') {
			dsn += "&" + param
		} else {
			dsn += "?" + param
		}
	}
	return dsn
}

// Execute renders the command with anonymous placeholders and runs it.
func (e *Executor) Execute(ctx context.Context, cmd notify.Command) error {
	query, args, err := database.Render(cmd, database.StyleAnonymous)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx, query, args...)
	return err
}

// Ping verifies the database is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the handle and its pooled connections.
func (e *Executor) Close() error {
	return e.db.Close()
}
