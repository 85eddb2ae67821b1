// Package postgres executes commands against PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/eventsink/internal/database"
	"github.com/JonMunkholm/eventsink/internal/notify"
)

// Config carries pool settings. Zero values keep the pgxpool defaults.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Executor runs rendered commands on a shared pgx pool.
type Executor struct {
	pool *pgxpool.Pool
}

// Open parses the connection URL, applies the pool settings, and connects.
// Connections are established lazily; call Ping to verify reachability.
func Open(ctx context.Context, cfg Config) (*Executor, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return &Executor{pool: pool}, nil
}

// Execute renders the command with numbered placeholders and runs it.
func (e *Executor) Execute(ctx context.Context, cmd notify.Command) error {
	sql, args, err := database.Render(cmd, database.StyleNumbered)
	if err != nil {
		return err
	}
	_, err = e.pool.Exec(ctx, sql, args...)
	return err
}

// Ping verifies the database is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Close releases the pool and all its connections.
func (e *Executor) Close() error {
	e.pool.Close()
	return nil
}
