package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a settable Clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func TestSlidingWindowLifetime(t *testing.T) {
	const window = time.Minute

	t.Run("entry is live within its own generation", func(t *testing.T) {
		clock := newFakeClock()
		w := NewSlidingWindow[string, int](window, clock.Now)

		w.Add("a", 1)
		v, ok := w.Get("a")
		require.True(t, ok)
		require.Equal(t, 1, v)

		clock.Advance(window - time.Second)
		_, ok = w.Get("a")
		require.True(t, ok)
	})

	t.Run("entry survives into the previous generation", func(t *testing.T) {
		clock := newFakeClock()
		w := NewSlidingWindow[string, int](window, clock.Now)

		w.Add("a", 1)
		clock.Advance(window + time.Second)
		v, ok := w.Get("a")
		require.True(t, ok)
		require.Equal(t, 1, v)
	})

	t.Run("entry is gone after two generations", func(t *testing.T) {
		clock := newFakeClock()
		w := NewSlidingWindow[string, int](window, clock.Now)

		w.Add("a", 1)
		clock.Advance(2 * window)
		_, ok := w.Get("a")
		require.False(t, ok)
	})

	t.Run("clock jump past both generations drops everything", func(t *testing.T) {
		clock := newFakeClock()
		w := NewSlidingWindow[string, int](window, clock.Now)

		w.Add("a", 1)
		w.Add("b", 2)
		clock.Advance(10 * window)
		require.Zero(t, w.Len())
	})
}

func TestSlidingWindowAddRefreshesGeneration(t *testing.T) {
	const window = time.Minute
	clock := newFakeClock()
	w := NewSlidingWindow[string, int](window, clock.Now)

	w.Add("a", 1)
	clock.Advance(window + time.Second) // "a" now lives in the previous generation
	w.Add("a", 2)                       // moved back into the current generation
	clock.Advance(window - 2*time.Second)

	v, ok := w.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, w.Len())
}

func TestSlidingWindowUpdate(t *testing.T) {
	const window = time.Minute
	clock := newFakeClock()
	w := NewSlidingWindow[string, int](window, clock.Now)

	require.False(t, w.Update("a", func(v int) int { return v + 1 }))

	w.Add("a", 1)
	clock.Advance(window + time.Second) // "a" now lives in the previous generation
	require.True(t, w.Update("a", func(v int) int { return v + 1 }))
	clock.Advance(window - 2*time.Second)

	// The update moved "a" back into the current generation.
	v, ok := w.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestSlidingWindowConcurrentUpdates(t *testing.T) {
	w := NewSlidingWindow[string, int](time.Minute, nil)
	w.Add("a", 0)

	const writers = 8
	const increments = 100
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				w.Update("a", func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	v, ok := w.Get("a")
	require.True(t, ok)
	require.Equal(t, writers*increments, v)
}

func TestSlidingWindowRemove(t *testing.T) {
	const window = time.Minute
	clock := newFakeClock()
	w := NewSlidingWindow[string, int](window, clock.Now)

	w.Add("a", 1)
	clock.Advance(window + time.Second)
	w.Add("b", 2)

	v, ok := w.Remove("a") // removable from the previous generation
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = w.Remove("a")
	require.False(t, ok)

	_, ok = w.Remove("missing")
	require.False(t, ok)
	require.Equal(t, 1, w.Len())
}
