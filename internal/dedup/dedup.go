// Package dedup provides idempotency-key stores for the dispatch service.
//
// A store answers one question: has this key been seen within its TTL?
// The first caller for a key gets true and claims it; replays inside the
// TTL get false. The memory store serves single-instance deployments, the
// Redis store shares keys across replicas.
package dedup

import (
	"context"
	"sync"
	"time"
)

// janitorInterval is how often the memory store sweeps expired keys.
const janitorInterval = time.Minute

// Memory is an in-process idempotency store. Keys expire on their TTL and
// a background janitor reclaims the space. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time

	stop    chan struct{}
	stopped sync.Once
}

// NewMemory creates a memory store and starts its janitor.
// Callers must Close the store to stop the janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Once claims key for ttl. It returns true for the first caller and false
// while the claim is still live.
func (m *Memory) Once(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.entries[key] = now.Add(ttl)
	return true, nil
}

// Len reports the number of live and not-yet-swept keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the janitor. The store remains usable but no longer reclaims
// expired keys.
func (m *Memory) Close() error {
	m.stopped.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, expiry := range m.entries {
				if now.After(expiry) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
