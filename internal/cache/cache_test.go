package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingMetrics struct {
	hits, misses, evictions, expirations int
}

func (m *countingMetrics) Hit() { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }
func (m *countingMetrics) Eviction() { m.evictions++ }
func (m *countingMetrics) Expire() { m.expirations++ }
func (m *countingMetrics) Size(int) {}

func TestGetSet(t *testing.T) {
	c := New(Options[string]{})

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	m := &countingMetrics{}
	c := New(Options[int]{TTL: time.Hour, Now: clock.Now, Metrics: m})

	c.Set("k", 1)

	clock.Advance(time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry exactly at TTL should still be live")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry past TTL should be absent")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry should be removed on read, size = %d", c.Size())
	}
	if m.expirations != 1 {
		t.Errorf("expirations = %d, want 1", m.expirations)
	}
}

func TestCapacityEvictsOldestInserted(t *testing.T) {
	m := &countingMetrics{}
	c := New(Options[int]{Capacity: 3, Metrics: m})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Reading "a" must not protect it: eviction is by insertion order
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}

	c.Set("d", 4)

	if c.Size() != 3 {
		t.Fatalf("size = %d, want 3", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a was oldest and should have been evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should survive", k)
		}
	}
	if m.evictions != 1 {
		t.Errorf("evictions = %d, want exactly 1", m.evictions)
	}
}

func TestOverwriteKeepsQueuePosition(t *testing.T) {
	c := New(Options[int]{Capacity: 2})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("a keeps its original slot and is evicted first")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("b = %d, %v", v, ok)
	}
}

func TestCapacityAtFiveHundred(t *testing.T) {
	c := New(Options[int]{})

	for i := 0; i < DefaultCapacity+1; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Size() != DefaultCapacity {
		t.Fatalf("size = %d, want %d", c.Size(), DefaultCapacity)
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("k0 should have been evicted")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Error("k1 should still be present")
	}
}

func TestCopyIsolatesCallers(t *testing.T) {
	c := New(Options[[]int]{
		Copy: func(v []int) []int { return append([]int(nil), v...) },
	})

	in := []int{1, 2, 3}
	c.Set("k", in)
	in[0] = 99

	out, _ := c.Get("k")
	if out[0] != 1 {
		t.Errorf("mutating the input leaked into the cache: %v", out)
	}
	out[1] = 99

	again, _ := c.Get("k")
	if again[1] != 2 {
		t.Errorf("mutating the output leaked into the cache: %v", again)
	}
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[int]{TTL: time.Minute, Now: clock.Now})

	c.Set("old", 1)
	clock.Advance(45 * time.Second)
	c.Set("new", 2)
	clock.Advance(30 * time.Second)

	if removed := c.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "new" {
		t.Errorf("keys after sweep = %v", keys)
	}
	if st := c.Stats(); st.Expirations != 1 {
		t.Errorf("stats expirations = %d, want 1", st.Expirations)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := New(Options[int]{TTL: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 5*time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestStats(t *testing.T) {
	c := New(Options[int]{Capacity: 1, TTL: 2 * time.Hour})
	c.Set("a", 1)
	c.Get("a")
	c.Get("b")
	c.Set("b", 2)

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Evictions != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.TTLSeconds != 7200 || st.Capacity != 1 || st.Size != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Options[int]{Capacity: 50})
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i%70)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > 50 {
		t.Errorf("size %d exceeds capacity", c.Size())
	}
}
