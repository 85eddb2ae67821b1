package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/eventsink/internal/database/postgres"
	"github.com/JonMunkholm/eventsink/internal/database/sqldriver"
	"github.com/JonMunkholm/eventsink/internal/notify"
)

// OpenSettings carries the pool tuning the default opener applies to the
// connections it builds. FallbackURL backs postgres connections declared
// without a DSN.
type OpenSettings struct {
	FallbackURL string

	PgMaxConns        int32
	PgMinConns        int32
	PgMaxConnLifetime time.Duration
	PgMaxConnIdleTime time.Duration

	SQLMaxOpenConns    int
	SQLMaxIdleConns    int
	SQLConnMaxLifetime time.Duration
}

// NewOpener returns an OpenFunc that opens real executors for the
// supported drivers: postgres through pgx, mysql and odbc through
// database/sql.
func NewOpener(s OpenSettings) OpenFunc {
	return func(ctx context.Context, name string, conn Connection) (notify.Executor, error) {
		switch conn.Driver {
		case "postgres", "pgx":
			url := conn.DSN
			if url == "" {
				url = s.FallbackURL
			}
			if url == "" {
				return nil, &notify.ConfigError{Reason: fmt.Sprintf("connection %q has no dsn", name)}
			}
			return postgres.Open(ctx, postgres.Config{
				URL:             url,
				MaxConns:        s.PgMaxConns,
				MinConns:        s.PgMinConns,
				MaxConnLifetime: s.PgMaxConnLifetime,
				MaxConnIdleTime: s.PgMaxConnIdleTime,
			})

		case sqldriver.DriverMySQL, sqldriver.DriverODBC:
			if conn.DSN == "" {
				return nil, &notify.ConfigError{Reason: fmt.Sprintf("connection %q has no dsn", name)}
			}
			return sqldriver.Open(sqldriver.Config{
				Driver:          conn.Driver,
				DSN:             conn.DSN,
				MaxOpenConns:    s.SQLMaxOpenConns,
				MaxIdleConns:    s.SQLMaxIdleConns,
				ConnMaxLifetime: s.SQLConnMaxLifetime,
			})

		default:
			return nil, &notify.ConfigError{Reason: fmt.Sprintf("connection %q: unsupported driver %q", name, conn.Driver)}
		}
	}
}

// DefaultOpen opens connections with no pool tuning applied.
var DefaultOpen = NewOpener(OpenSettings{})
