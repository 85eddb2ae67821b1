package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultDispatchTimeout bounds a single dispatch, including the
	// database round trip.
	DefaultDispatchTimeout = 30 * time.Second

	// DefaultDedupTTL is how long an idempotency key blocks replays.
	DefaultDedupTTL = 24 * time.Hour
)

// ServiceConfig carries the tunables for a dispatch Service. Zero values
// fall back to the package defaults.
type ServiceConfig struct {
	MaxConcurrent int           // concurrent dispatch ceiling
	MaxWait       time.Duration // how long a dispatch waits for a slot
	Timeout       time.Duration // per-dispatch deadline
	DedupTTL      time.Duration // idempotency key lifetime
	HistorySize   int           // dispatch records kept in memory
}

// Service coordinates dispatches against the channel registry. It applies
// concurrency limits, per-dispatch timeouts and idempotency checks, and
// records every attempt in the dispatch history.
type Service struct {
	limiter  *DispatchLimiter
	history  *History
	store    IdempotencyStore
	timeout  time.Duration
	dedupTTL time.Duration
	logger   *slog.Logger
}

// DispatchOptions carries per-request dispatch settings.
type DispatchOptions struct {
	// IdempotencyKey suppresses replays of the same logical event. Empty
	// means no dedup check for this dispatch.
	IdempotencyKey string
}

// NewService builds a Service. store may be nil, in which case idempotency
// keys are ignored. logger may be nil, in which case slog.Default is used.
func NewService(cfg ServiceConfig, store IdempotencyStore, logger *slog.Logger) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrentDispatches
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDispatchTimeout
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultDedupTTL
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		limiter:  NewDispatchLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		history:  NewHistory(cfg.HistorySize),
		store:    store,
		timeout:  cfg.Timeout,
		dedupTTL: cfg.DedupTTL,
		logger:   logger,
	}
}

// Dispatch resolves the named channel and delivers the event to it. Every
// attempt against a known channel lands in the history, including rejected
// and failed ones. The returned record is a copy; the error, when non-nil,
// is the cause the record's Code was derived from.
func (s *Service) Dispatch(ctx context.Context, channel string, event Event, attachments []Attachment, opts DispatchOptions) (*DispatchRecord, error) {
	ch, ok := Get(channel)
	if !ok {
		return nil, ErrChannelNotFound
	}

	if opts.IdempotencyKey != "" && s.store != nil {
		first, err := s.store.Once(ctx, channel+":"+opts.IdempotencyKey, s.dedupTTL)
		if err != nil {
			// A broken dedup store should not block dispatches.
			s.logger.Warn("idempotency check failed, dispatching anyway",
				"channel", channel,
				"error", err,
			)
		} else if !first {
			rec := DispatchRecord{
				ID:        uuid.New().String(),
				Channel:   channel,
				OK:        true,
				Duplicate: true,
				At:        time.Now().UTC(),
			}
			s.history.Record(rec)
			s.logger.Info("duplicate dispatch suppressed",
				"dispatch_id", rec.ID,
				"channel", channel,
				"idempotency_key", opts.IdempotencyKey,
			)
			return &rec, nil
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		rec := s.finish(DispatchRecord{
			ID:      uuid.New().String(),
			Channel: channel,
			At:      time.Now().UTC(),
		}, err)
		return &rec, err
	}
	defer s.limiter.Release()

	dispatchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := ch.Notifier.Notify(dispatchCtx, event, attachments)

	rec := s.finish(DispatchRecord{
		ID:         uuid.New().String(),
		Channel:    channel,
		DurationMS: time.Since(start).Milliseconds(),
		At:         start.UTC(),
	}, err)
	if err != nil {
		return &rec, err
	}
	return &rec, nil
}

// finish stamps the outcome on a record, stores it and logs it.
func (s *Service) finish(rec DispatchRecord, err error) DispatchRecord {
	if err != nil {
		rec.Error = err.Error()
		rec.Code = MapError(err).Code
	} else {
		rec.OK = true
	}
	s.history.Record(rec)
	if err != nil {
		s.logger.Warn("dispatch failed",
			"dispatch_id", rec.ID,
			"channel", rec.Channel,
			"code", rec.Code,
			"duration_ms", rec.DurationMS,
			"error", err,
		)
	} else if !rec.Duplicate {
		s.logger.Info("dispatch complete",
			"dispatch_id", rec.ID,
			"channel", rec.Channel,
			"duration_ms", rec.DurationMS,
		)
	}
	return rec
}

// Recent returns up to limit history records, newest first.
func (s *Service) Recent(limit int) []DispatchRecord {
	return s.history.Recent(limit)
}

// Stats returns the running dispatch counters.
func (s *Service) Stats() Stats {
	return s.history.Stats()
}

// Subscribe registers a live feed of dispatch records.
func (s *Service) Subscribe() (int, <-chan DispatchRecord) {
	return s.history.Subscribe()
}

// Unsubscribe tears down a feed subscription.
func (s *Service) Unsubscribe(id int) {
	s.history.Unsubscribe(id)
}

// LimiterStatus reports the current dispatch concurrency usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForDrain blocks until in-flight dispatches finish or ctx expires.
// Call it during shutdown before closing database connections.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
