package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl)
	c.now = clk.now
	return c, clk
}

func TestCacheSetGetDelete(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("a", "one")
	if v, ok := c.Get("a"); !ok || v != "one" {
		t.Fatalf("expected cached value, got %q %v", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestCacheExpiryAndPurge(t *testing.T) {
	c, clk := newTestCache(time.Minute)

	c.SetTTL("short", "x", time.Second)
	c.Set("long", "y")
	clk.advance(time.Second)

	if _, ok := c.Get("short"); ok {
		t.Fatalf("entry must be gone exactly at its expiry")
	}
	if c.Len() != 2 {
		t.Fatalf("Get must not remove entries, len=%d", c.Len())
	}

	if n := c.Purge(); n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
	if v, ok := c.Get("long"); !ok || v != "y" {
		t.Fatalf("long-lived entry should survive, got %q %v", v, ok)
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c, clk := newTestCache(0)

	c.Set("k", "v")
	clk.advance(4 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry should live for the 5s default")
	}
	clk.advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should expire after the 5s default")
	}
}
