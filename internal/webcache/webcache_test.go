package webcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
)

func newTestCache(maxEntries, expireDays int) (*Cache, *MemoryStore) {
	st := NewMemoryStore(maxEntries)
	c := New(config.CacheConfig{Backend: "inmemory", MaxEntries: maxEntries, ExpireDays: expireDays}, st)
	return c, st
}

func TestKeyChangesWithBucket(t *testing.T) {
	c, _ := newTestCache(10, 1)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	k1 := c.Key("https://example.com/pikachu")

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if k2 := c.Key("https://example.com/pikachu"); k2 != k1 {
		t.Fatalf("key changed within the same bucket: %s vs %s", k1, k2)
	}

	c.now = func() time.Time { return base.Add(24 * time.Hour) }
	if k3 := c.Key("https://example.com/pikachu"); k3 == k1 {
		t.Fatalf("key did not change across bucket rollover")
	}
}

func TestGetSetAndStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(10, 1)

	if _, ok := c.Get(ctx, "https://example.com/a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set(ctx, "https://example.com/a", `{"success":true}`); err != nil {
		t.Fatal(err)
	}
	payload, ok := c.Get(ctx, "https://example.com/a")
	if !ok || payload != `{"success":true}` {
		t.Fatalf("expected hit with payload, got ok=%v payload=%q", ok, payload)
	}
	if !c.IsCached(ctx, "https://example.com/a") {
		t.Fatal("IsCached should report true")
	}

	stats := c.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 || stats.Total != 2 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.HitRate != 50 {
		t.Fatalf("expected 50%% hit rate, got %v", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Fatalf("expected size 1, got %d", stats.Size)
	}

	c.ResetStats()
	stats = c.Stats(ctx)
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("counters not reset: %+v", stats)
	}
}

func TestMemoryStoreDropsExpired(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(10)
	base := time.Now()
	st.now = func() time.Time { return base }

	if err := st.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatal(err)
	}
	st.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := st.Get(ctx, "k1"); err == nil {
		t.Fatal("expected expired entry to miss")
	}
	if err := st.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := st.Len(ctx); n != 0 {
		t.Fatalf("expected expired entry removed, len=%d", n)
	}
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(10)
	for i := 0; i < 10; i++ {
		if err := st.Set(ctx, fmt.Sprintf("k%d", i), "v", time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ := st.Len(ctx)
	if n != 8 {
		t.Fatalf("expected oldest fifth evicted (10 -> 8), got %d", n)
	}
	if _, err := st.Get(ctx, "k0"); err == nil {
		t.Fatal("oldest entry should be gone")
	}
	if _, err := st.Get(ctx, "k9"); err != nil {
		t.Fatal("newest entry should survive")
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, st := newTestCache(10, 1)
	_ = c.Set(ctx, "https://example.com/a", "x")
	_ = c.Set(ctx, "https://example.com/b", "y")
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := st.Len(ctx); n != 0 {
		t.Fatalf("expected empty store after clear, len=%d", n)
	}
}
