// Package store holds the server-side correlation state for multi-step
// flows: the one-time authorization code manager and the SSO session
// manager, both built on a generic sliding-window expiring map.
package store

import (
	"sync"
	"time"
)

// Clock supplies the current time. Stores never read the system clock
// directly, so expiry is deterministic under test.
type Clock func() time.Time

// SlidingWindow is a thread-safe expiring map. Entries are partitioned into
// time-bucketed generations of length windowLength: Add places an entry in
// the current generation, and lookups only see the current and immediately
// preceding generation. The TTL is therefore approximate: an entry lives at
// least windowLength and at most 2*windowLength, and lookup cost is bounded
// by two generations regardless of backlog.
type SlidingWindow[K comparable, V any] struct {
	mu           sync.Mutex
	windowLength time.Duration
	now          Clock
	current      map[K]V
	previous     map[K]V
	currentStart time.Time
}

// NewSlidingWindow creates a store with the given generation length. A nil
// clock falls back to time.Now.
func NewSlidingWindow[K comparable, V any](windowLength time.Duration, now Clock) *SlidingWindow[K, V] {
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow[K, V]{
		windowLength: windowLength,
		now:          now,
		current:      make(map[K]V),
		previous:     make(map[K]V),
		currentStart: now(),
	}
}

// roll advances the generations to cover the current time. Called with the
// lock held; both threads racing across a boundary observe the same
// post-roll state because the roll itself is serialized.
func (w *SlidingWindow[K, V]) roll() {
	elapsed := w.now().Sub(w.currentStart)
	switch {
	case elapsed < w.windowLength:
		return
	case elapsed < 2*w.windowLength:
		w.previous = w.current
		w.current = make(map[K]V)
		w.currentStart = w.currentStart.Add(w.windowLength)
	default:
		// The clock jumped past both generations; everything is stale.
		w.previous = make(map[K]V)
		w.current = make(map[K]V)
		steps := elapsed / w.windowLength
		w.currentStart = w.currentStart.Add(steps * w.windowLength)
	}
}

// Add stores the entry in the current generation, replacing any existing
// entry for the key in either generation.
func (w *SlidingWindow[K, V]) Add(key K, value V) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll()
	delete(w.previous, key)
	w.current[key] = value
}

// Get returns the entry if it lives in the current or previous generation.
func (w *SlidingWindow[K, V]) Get(key K) (V, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll()
	if v, ok := w.current[key]; ok {
		return v, true
	}
	if v, ok := w.previous[key]; ok {
		return v, true
	}
	var zero V
	return zero, false
}

// Update applies fn to the entry under the lock and stores the result in
// the current generation, so concurrent updates of one key never lose
// writes. Reports whether the entry was still live.
func (w *SlidingWindow[K, V]) Update(key K, fn func(V) V) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll()
	value, ok := w.current[key]
	if !ok {
		if value, ok = w.previous[key]; !ok {
			return false
		}
		delete(w.previous, key)
	}
	w.current[key] = fn(value)
	return true
}

// Remove deletes and returns the entry if it is still live.
func (w *SlidingWindow[K, V]) Remove(key K) (V, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll()
	if v, ok := w.current[key]; ok {
		delete(w.current, key)
		return v, true
	}
	if v, ok := w.previous[key]; ok {
		delete(w.previous, key)
		return v, true
	}
	var zero V
	return zero, false
}

// Len counts the live entries across both generations.
func (w *SlidingWindow[K, V]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll()
	return len(w.current) + len(w.previous)
}
