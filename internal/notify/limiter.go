package notify

// limiter.go implements concurrency control for dispatch processing.
//
// The limiter uses a semaphore pattern to restrict parallel dispatches to a
// configurable maximum, protecting destination databases under bursts. When
// all slots are occupied, new requests wait up to maxWait before failing
// with ErrTooManyDispatches.
//
// The limiter also supports graceful shutdown via WaitForDrain, which
// blocks until all active dispatches complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyDispatches is returned when all dispatch slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyDispatches = errors.New("too many concurrent dispatches, please try again later")

// DefaultMaxConcurrentDispatches is the default limit for parallel dispatches.
const DefaultMaxConcurrentDispatches = 16

// DefaultMaxWait is how long to wait for a slot before rejecting.
const DefaultMaxWait = 5 * time.Second

// DispatchLimiter controls concurrent dispatch processing using a semaphore.
type DispatchLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewDispatchLimiter creates a limiter allowing at most maxConcurrent
// simultaneous dispatches. Requests that cannot acquire a slot within
// maxWait receive ErrTooManyDispatches.
func NewDispatchLimiter(maxConcurrent int, maxWait time.Duration) *DispatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentDispatches
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &DispatchLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a dispatch slot.
// Returns nil on success, ErrTooManyDispatches if the timeout expires.
// The caller MUST call Release() when the dispatch completes (use defer).
func (l *DispatchLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from slot timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyDispatches
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *DispatchLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *DispatchLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active dispatches.
func (l *DispatchLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent dispatches.
func (l *DispatchLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *DispatchLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active dispatches complete or the context
// is cancelled. Used for graceful shutdown.
func (l *DispatchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a snapshot of the limiter's current state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *DispatchLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
