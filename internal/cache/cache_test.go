package cache

import (
	"testing"
	"time"
)

func TestGetFresh(t *testing.T) {
	c := New[string](time.Second)
	c.Put("GAME01", "state")

	v, ok := c.Get("GAME01")
	if !ok || v != "state" {
		t.Errorf("expected fresh hit, got %q ok=%v", v, ok)
	}
}

func TestGetMiss(t *testing.T) {
	c := New[string](time.Second)
	if _, ok := c.Get("GAME01"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestGetExpired(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Put("GAME01", "state")
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("GAME01"); ok {
		t.Error("expected stale entry to miss")
	}
	// Peek still serves the stale value for degraded reads.
	if v, ok := c.Peek("GAME01"); !ok || v != "state" {
		t.Errorf("expected stale peek, got %q ok=%v", v, ok)
	}
}

func TestDrop(t *testing.T) {
	c := New[string](time.Second)
	c.Put("GAME01", "state")
	c.Drop("GAME01")
	if _, ok := c.Peek("GAME01"); ok {
		t.Error("expected entry dropped")
	}
}

func TestPutRefreshes(t *testing.T) {
	c := New[string](50 * time.Millisecond)
	c.Put("GAME01", "old")
	time.Sleep(30 * time.Millisecond)
	c.Put("GAME01", "new")
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first put but only 30ms after the refresh.
	if v, ok := c.Get("GAME01"); !ok || v != "new" {
		t.Errorf("expected refreshed entry, got %q ok=%v", v, ok)
	}
}

func TestStats(t *testing.T) {
	c := New[string](time.Second)
	c.Put("GAME01", "state")
	c.Get("GAME01")
	c.Get("GAME01")
	c.Get("MISSIN")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("expected 2/1, got %d/%d", hits, misses)
	}
	if r := c.HitRate(); r < 0.66 || r > 0.67 {
		t.Errorf("unexpected hit rate %f", r)
	}
}

func TestSweep(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Put("GAME01", "state")
	c.Put("GAME02", "state")
	time.Sleep(5 * time.Millisecond)
	c.sweep()

	if c.Len() != 0 {
		t.Errorf("expected sweep to clear entries, got %d", c.Len())
	}
}

func TestKeys(t *testing.T) {
	c := New[int](time.Second)
	c.Put("A", 1)
	c.Put("B", 2)
	if got := len(c.Keys()); got != 2 {
		t.Errorf("expected 2 keys, got %d", got)
	}
}
