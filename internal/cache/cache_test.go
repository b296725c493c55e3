package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPutGet(t *testing.T) {
	c := New[string, int](10, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected Get(a) = 1, got %d ok=%v", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("expected Get(b) = 2, got %d ok=%v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestPutOverwritesAndRefreshesTTL(t *testing.T) {
	c := New[string, int](10, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("a", 1)
	now = now.Add(50 * time.Second)
	c.Put("a", 2)

	// 50s + 30s exceeds the original expiry but not the refreshed one.
	now = now.Add(30 * time.Second)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("expected overwrite to refresh TTL, got %d ok=%v", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[string, int](10, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("a", 1)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected entry to be live before TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to expire after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed on access, len=%d", c.Len())
	}

	stats := c.Stats()
	if stats.Expired != 1 {
		t.Errorf("expected 1 expired, got %d", stats.Expired)
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[string, int](3, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Touch "a" so "b" becomes the least recently used.
	c.Get("a")

	c.Put("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected least recently used entry b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive eviction", key)
		}
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestInvalidateAndPurge(t *testing.T) {
	c := New[string, int](10, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected invalidated entry to be gone")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, len=%d", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected purge to remove all entries")
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var c *Cache[string, int]

	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("expected nil cache to always miss")
	}
	c.Invalidate("a")
	c.Purge()
	if c.Len() != 0 {
		t.Error("expected nil cache length 0")
	}
	if stats := c.Stats(); stats != (Stats{}) {
		t.Errorf("expected zero stats from nil cache, got %+v", stats)
	}
}

func TestStatsCounters(t *testing.T) {
	c := New[string, int](10, time.Minute)

	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Size != 1 || stats.Capacity != 10 {
		t.Errorf("expected size=1 capacity=10, got size=%d capacity=%d", stats.Size, stats.Capacity)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string, int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%50)
				c.Put(key, g*1000+i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("cache exceeded capacity under concurrency: %d", c.Len())
	}
}
