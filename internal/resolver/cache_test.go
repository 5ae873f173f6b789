package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

func TestCache_Get_SingleFlight(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	key := domain.TenantKey("org:flight")
	dir := t.TempDir()

	var opens atomic.Int32
	open := func(ctx context.Context) (backend.Handle, error) {
		opens.Add(1)
		return backend.OpenDocument(key, dir)
	}

	const callers = 16
	handles := make([]backend.Handle, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := cache.Get(context.Background(), key, open)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if got := opens.Load(); got != 1 {
		t.Errorf("open calls: got %d, want 1 (duplicate physical connections)", got)
	}
	for i := 1; i < callers; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("caller %d received a different handle", i)
		}
	}

	t.Cleanup(func() { _ = cache.Close() })
}

func TestCache_Get_FailedOpenNotCached(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	key := domain.TenantKey("org:broken")
	dir := t.TempDir()

	boom := errors.New("backend unavailable")
	var opens int

	open := func(ctx context.Context) (backend.Handle, error) {
		opens++
		if opens == 1 {
			return nil, boom
		}
		return backend.OpenDocument(key, dir)
	}

	if _, err := cache.Get(context.Background(), key, open); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("failed open must not be cached")
	}

	h, err := cache.Get(context.Background(), key, open)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if h == nil || cache.Len() != 1 {
		t.Fatal("second get must open and cache the handle")
	}

	t.Cleanup(func() { _ = cache.Close() })
}

func TestCache_InvalidateDoesNotClose(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	key := domain.TenantKey("org:evict")

	h, err := cache.Get(context.Background(), key, func(ctx context.Context) (backend.Handle, error) {
		return backend.OpenDocument(key, t.TempDir())
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	cache.Invalidate(key)
	if cache.Len() != 0 {
		t.Fatal("expected entry to be dropped")
	}

	// The evicted handle stays usable for whoever still references it.
	if err := h.Ping(context.Background()); err != nil {
		t.Fatalf("evicted handle must remain open: %v", err)
	}
	_ = h.Close()
}
