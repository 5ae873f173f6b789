package resolver

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

// OpenFunc opens a fresh backend handle for a tenant.
type OpenFunc func(ctx context.Context) (backend.Handle, error)

// Cache holds live backend handles keyed by tenant. Entries are created
// lazily and live for the process lifetime; a handle is only dropped via
// Invalidate after a connectivity failure, and dropping never closes it —
// in-flight requests may still hold a reference, so the old handle is left
// to the garbage collector.
//
// Concurrent first access for the same tenant is collapsed through
// singleflight: one caller opens the connection, the rest wait for and
// share the result.
type Cache struct {
	mu      sync.RWMutex
	handles map[domain.TenantKey]backend.Handle
	group   singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{handles: make(map[domain.TenantKey]backend.Handle)}
}

// Get returns the cached handle for key, or opens one via open and caches
// it. A failed open caches nothing, so the next caller retries.
func (c *Cache) Get(ctx context.Context, key domain.TenantKey, open OpenFunc) (backend.Handle, error) {
	c.mu.RLock()
	h, ok := c.handles[key]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	ch := c.group.DoChan(string(key), func() (any, error) {
		// Re-check under the flight: a racing caller may have just filled it.
		c.mu.RLock()
		cached, exists := c.handles[key]
		c.mu.RUnlock()
		if exists {
			return cached, nil
		}

		opened, err := open(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.handles[key] = opened
		c.mu.Unlock()
		return opened, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(backend.Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put stores a pre-opened handle, used to seed the shared administrative
// backend at startup.
func (c *Cache) Put(key domain.TenantKey, h backend.Handle) {
	c.mu.Lock()
	c.handles[key] = h
	c.mu.Unlock()
}

// Invalidate drops the entry for key without closing the handle.
func (c *Cache) Invalidate(key domain.TenantKey) {
	c.mu.Lock()
	delete(c.handles, key)
	c.mu.Unlock()
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Close closes every cached handle. Called at process shutdown only.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, h := range c.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.handles, key)
	}
	return firstErr
}
