package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryViewCacheInvalidateByNamespace(t *testing.T) {
	c := NewMemoryViewCache()
	ctx := context.Background()

	if err := c.Set(ctx, ViewDashboard, "today", 0, map[string]int{"sales": 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, ViewInventory, "all", 0, []string{"a"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got map[string]int
	hit, _, err := c.Get(ctx, ViewDashboard, "today", &got)
	if err != nil || !hit || got["sales"] != 3 {
		t.Fatalf("expected cache hit, got hit=%v err=%v val=%v", hit, err, got)
	}

	if err := c.Invalidate(ctx, ViewDashboard); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if hit, _, _ := c.Get(ctx, ViewDashboard, "today", &got); hit {
		t.Fatalf("expected dashboard miss after invalidation")
	}
	var items []string
	if hit, _, _ := c.Get(ctx, ViewInventory, "all", &items); !hit {
		t.Fatalf("expected inventory entry to survive dashboard invalidation")
	}
}

func TestMemoryViewCacheExpires(t *testing.T) {
	c := NewMemoryViewCache()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, ViewSales, "p1", 0, 1, time.Second)
	now = now.Add(2 * time.Second)
	var v int
	if hit, _, _ := c.Get(ctx, ViewSales, "p1", &v); hit {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryViewCacheDropsWritesFromBeforeInvalidate(t *testing.T) {
	c := NewMemoryViewCache()
	ctx := context.Background()

	var stale []string
	hit, before, err := c.Get(ctx, ViewInventory, "all", &stale)
	if err != nil || hit {
		t.Fatalf("expected a clean miss, got hit=%v err=%v", hit, err)
	}

	// A sale commits and invalidates while the slow read is still rendering.
	if err := c.Invalidate(ctx, ViewInventory); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, ViewInventory, "all", before, []string{"collar x25"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if hit, _, _ := c.Get(ctx, ViewInventory, "all", &stale); hit {
		t.Fatalf("expected the pre-invalidation view to be discarded, got %v", stale)
	}

	_, after, _ := c.Get(ctx, ViewInventory, "all", &stale)
	if after == before {
		t.Fatalf("expected invalidation to advance the version")
	}
	if err := c.Set(ctx, ViewInventory, "all", after, []string{"collar x20"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var fresh []string
	if hit, _, _ := c.Get(ctx, ViewInventory, "all", &fresh); !hit || fresh[0] != "collar x20" {
		t.Fatalf("expected fresh view to be cached, got hit=%v val=%v", hit, fresh)
	}
}

func TestRedisKeys(t *testing.T) {
	if got := entryKey(ViewSales, 4, "page=1"); got != "vetpos:view:sales:4:page=1" {
		t.Fatalf("unexpected entry key %s", got)
	}
	if got := generationKey(ViewSales); got != "vetpos:view:sales:gen" {
		t.Fatalf("unexpected generation key %s", got)
	}
}
