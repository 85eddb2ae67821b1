package notify

// history.go keeps a bounded in-memory record of recent dispatches.
//
// Every dispatch outcome lands here: the ring holds the most recent
// records, the counters run forever, and subscribers receive each record
// as it is recorded. Slow subscribers are skipped rather than blocking the
// dispatch path.

import (
	"sync"
	"time"
)

// DefaultHistorySize is the ring capacity when none is configured.
const DefaultHistorySize = 256

// DispatchRecord is the recorded outcome of one dispatch attempt.
type DispatchRecord struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	OK         bool      `json:"ok"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	Error      string    `json:"error,omitempty"`
	Code       string    `json:"code,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// Stats are monotonic dispatch counters since process start.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Failed     uint64 `json:"failed"`
	Duplicates uint64 `json:"duplicates"`
}

// History is a fixed-capacity ring of dispatch records plus counters.
// Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	ring    []DispatchRecord
	next    int
	size    int
	stats   Stats
	subs    map[int]chan DispatchRecord
	nextSub int
}

// NewHistory creates a history ring holding up to capacity records.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		ring: make([]DispatchRecord, capacity),
		subs: make(map[int]chan DispatchRecord),
	}
}

// Record stores a dispatch outcome, updates counters, and fans the record
// out to subscribers. Subscribers with full buffers miss the record.
func (h *History) Record(rec DispatchRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = rec
	h.next = (h.next + 1) % len(h.ring)
	if h.size < len(h.ring) {
		h.size++
	}

	switch {
	case rec.Duplicate:
		h.stats.Duplicates++
	case rec.OK:
		h.stats.Dispatched++
	default:
		h.stats.Failed++
	}

	// Sends are non-blocking, so holding the lock here cannot deadlock,
	// and it keeps Unsubscribe's close safe.
	for _, ch := range h.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Recent returns up to limit records, newest first.
// limit <= 0 returns everything in the ring.
func (h *History) Recent(limit int) []DispatchRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.size {
		limit = h.size
	}

	out := make([]DispatchRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out
}

// Stats returns a snapshot of the counters.
func (h *History) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Subscribe registers a listener for future dispatch records.
// The returned channel is buffered; records are dropped rather than
// delivered late when the buffer is full. Callers must Unsubscribe.
func (h *History) Subscribe() (int, <-chan DispatchRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++

	ch := make(chan DispatchRecord, 16)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *History) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
