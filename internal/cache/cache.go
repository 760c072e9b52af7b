package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// View namespaces invalidated by writes.
const (
	ViewSales     = "sales"
	ViewDashboard = "dashboard"
	ViewInventory = "inventory"
)

// Version is a namespace's generation as seen by Get. A value computed after
// a miss is stored with Set under that version, so a view read before an
// Invalidate can never be served after it.
type Version int64

// ViewCache stores rendered read models. Invalidate drops every key of the
// given namespaces at once.
type ViewCache interface {
	Get(ctx context.Context, namespace string, key string, dst any) (bool, Version, error)
	Set(ctx context.Context, namespace string, key string, version Version, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, namespaces ...string) error
}

type NoopViewCache struct{}

func (NoopViewCache) Get(_ context.Context, _ string, _ string, _ any) (bool, Version, error) {
	return false, 0, nil
}

func (NoopViewCache) Set(_ context.Context, _ string, _ string, _ Version, _ any, _ time.Duration) error {
	return nil
}

func (NoopViewCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

// MemoryViewCache is a process-local ViewCache used when Redis is not
// configured.
type MemoryViewCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]memoryEntry
	generations map[string]Version
	now         func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryViewCache() *MemoryViewCache {
	return &MemoryViewCache{
		entries:     map[string]map[string]memoryEntry{},
		generations: map[string]Version{},
		now:         time.Now,
	}
}

func (c *MemoryViewCache) Get(_ context.Context, namespace string, key string, dst any) (bool, Version, error) {
	c.mu.Lock()
	entry, ok := c.entries[namespace][key]
	version := c.generations[namespace]
	c.mu.Unlock()
	if !ok || c.now().After(entry.expiresAt) {
		return false, version, nil
	}
	if err := json.Unmarshal(entry.payload, dst); err != nil {
		return false, version, err
	}
	return true, version, nil
}

func (c *MemoryViewCache) Set(_ context.Context, namespace string, key string, version Version, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.generations[namespace] {
		return nil
	}
	if c.entries[namespace] == nil {
		c.entries[namespace] = map[string]memoryEntry{}
	}
	c.entries[namespace][key] = memoryEntry{payload: payload, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryViewCache) Invalidate(_ context.Context, namespaces ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range namespaces {
		delete(c.entries, ns)
		c.generations[ns]++
	}
	return nil
}
