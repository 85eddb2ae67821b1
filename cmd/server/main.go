package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/eventsink/internal/channels"
	"github.com/JonMunkholm/eventsink/internal/config"
	"github.com/JonMunkholm/eventsink/internal/dedup"
	"github.com/JonMunkholm/eventsink/internal/logging"
	"github.com/JonMunkholm/eventsink/internal/notify"
	"github.com/JonMunkholm/eventsink/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"channels_file", cfg.Channels.File,
		"dispatch_max_concurrent", cfg.Dispatch.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Load and bind the channel declarations
	file, err := channels.Load(cfg.Channels.File)
	if err != nil {
		slog.Error("failed to load channels file", "file", cfg.Channels.File, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	opener := channels.NewOpener(channels.OpenSettings{
		FallbackURL:        cfg.Database.URL,
		PgMaxConns:         int32(cfg.Database.MaxConns),
		PgMinConns:         int32(cfg.Database.MinConns),
		PgMaxConnLifetime:  cfg.Database.MaxConnLifetime,
		PgMaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		SQLMaxOpenConns:    cfg.Database.MaxConns,
		SQLMaxIdleConns:    cfg.Database.MinConns,
		SQLConnMaxLifetime: cfg.Database.MaxConnLifetime,
	})

	set, err := channels.Bind(ctx, file, opener, logger)
	if err != nil {
		slog.Error("failed to bind channels", "error", err)
		os.Exit(1)
	}
	defer set.Close()

	slog.Info("channels registered",
		"count", notify.Count(),
		"connections", len(set.Connections),
	)
	for _, ch := range notify.All() {
		slog.Debug("channel", "name", ch.Name, "kind", ch.Kind)
	}

	// Pick the idempotency store
	var store notify.IdempotencyStore
	if cfg.Dedup.Enabled {
		if cfg.Dedup.RedisAddr != "" {
			r := dedup.NewRedis(cfg.Dedup.RedisAddr, cfg.Dedup.RedisPassword, cfg.Dedup.RedisDB)
			if err := r.Ping(ctx); err != nil {
				slog.Error("failed to ping redis", "addr", cfg.Dedup.RedisAddr, "error", err)
				os.Exit(1)
			}
			defer r.Close()
			store = r
			slog.Info("idempotency store ready", "backend", "redis", "addr", cfg.Dedup.RedisAddr)
		} else {
			m := dedup.NewMemory()
			defer m.Close()
			store = m
			slog.Info("idempotency store ready", "backend", "memory")
		}
	}

	// Create the dispatch service with config
	service := notify.NewService(notify.ServiceConfig{
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		MaxWait:       cfg.Dispatch.MaxWait,
		Timeout:       cfg.Dispatch.Timeout,
		DedupTTL:      cfg.Dedup.TTL,
		HistorySize:   cfg.Dispatch.HistorySize,
	}, store, logger)

	// Create server with config
	server := web.NewServer(service, set, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active dispatches to complete (with timeout)
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for dispatches to complete", "active", status.Active)
			if err := service.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("dispatches did not complete in time", "error", err)
			} else {
				slog.Info("all dispatches completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server
	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
