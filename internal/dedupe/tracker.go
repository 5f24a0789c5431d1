package dedupe

import (
	"sync"
	"time"
)

type claim struct {
	id string
	ts time.Time
}

// Tracker remembers recently handled job IDs so redelivered queue messages are
// not researched twice. It holds at most capacity IDs, each for at most ttl.
type Tracker struct {
	mu       sync.Mutex
	claimed  map[string]time.Time
	order    []claim
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewTracker creates a tracker with the provided capacity and ttl.
func NewTracker(capacity int, ttl time.Duration) *Tracker {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{
		claimed:  make(map[string]time.Time, capacity),
		order:    make([]claim, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Claim marks id as handled and reports whether the caller is the first to
// claim it inside the ttl window. Check and mark happen under one lock.
func (t *Tracker) Claim(id string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if ts, ok := t.claimed[id]; ok && now.Sub(ts) <= t.ttl {
		return false
	}

	t.claimed[id] = now
	t.order = append(t.order, claim{id: id, ts: now})
	t.compact(now)
	return true
}

// Release forgets id so a later delivery can be processed again.
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.claimed, id)
}

// Len returns the number of IDs currently remembered.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.claimed)
}

func (t *Tracker) compact(now time.Time) {
	cutoff := now.Add(-t.ttl)

	for len(t.order) > 0 && (len(t.claimed) > t.capacity || t.order[0].ts.Before(cutoff)) {
		oldest := t.order[0]
		t.order = t.order[1:]

		if ts, ok := t.claimed[oldest.id]; ok && ts.Equal(oldest.ts) {
			delete(t.claimed, oldest.id)
		}
	}
}
