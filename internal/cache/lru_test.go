// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedLRU(capacity int, ttl time.Duration) (*LRU[int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[int](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newClockedLRU(3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	c.Get("a")

	if evicted := c.Add("d", 4); evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %q to be present", k)
		}
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	c, _ := newClockedLRU(2, time.Minute)
	c.Add("a", 1)
	c.Add("a", 2)

	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	c, clock := newClockedLRU(10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)

	clock.Advance(30 * time.Second)
	c.Add("c", 3)
	clock.Advance(31 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("expected 'a' to be expired")
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1 ('b')", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected 'c' to be live")
	}
}

func TestLRU_RemoveClearStats(t *testing.T) {
	c, _ := newClockedLRU(10, time.Minute)
	c.Add("a", 1)

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	c.Add("b", 2)
	c.Get("b")
	c.Get("missing")
	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d; want 1, 1, 1", hits, misses, size)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%80)
				c.Add(key, i)
				c.Get(key)
				if i%17 == 0 {
					c.Remove(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d, exceeds capacity 50", c.Len())
	}
}
