package fuelfinder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheEntry holds one cached dataset and its absolute expiry. Entries
// are replaced wholesale on refresh, never mutated in place.
type cacheEntry struct {
	value  any
	expiry time.Time
}

// datasetCache caches upstream datasets keyed by resource slot, each
// slot with its own TTL. Misses for the same slot are coalesced through
// singleflight so concurrent callers trigger exactly one refresh.
type datasetCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	sf      singleflight.Group

	// now is a clock function, overridable in tests.
	now func() time.Time
}

func newDatasetCache() *datasetCache {
	return &datasetCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// getOrRefresh returns the cached value for slot while it is fresh,
// otherwise runs refresh once for all concurrent callers and caches the
// result. A failed refresh leaves the slot untouched so the next call
// retries from scratch.
func (c *datasetCache) getOrRefresh(ctx context.Context, slot string, ttl time.Duration, refresh func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[slot]; ok && c.now().Before(e.expiry) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// The refresh runs detached from the caller's context: a client
	// disconnect must not fail the fetch for the other waiters. The
	// provider client bounds each request with its own timeout.
	ch := c.sf.DoChan(slot, func() (any, error) {
		value, err := refresh(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[slot] = cacheEntry{value: value, expiry: c.now().Add(ttl)}
		c.mu.Unlock()

		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// expiry reports when the slot's current entry lapses. ok is false for
// an empty slot.
func (c *datasetCache) expiry(slot string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[slot]
	if !ok {
		return time.Time{}, false
	}
	return e.expiry, true
}

// getDataset is a typed wrapper over getOrRefresh.
func getDataset[T any](ctx context.Context, c *datasetCache, slot string, ttl time.Duration, refresh func(ctx context.Context) ([]T, error)) ([]T, error) {
	v, err := c.getOrRefresh(ctx, slot, ttl, func(ctx context.Context) (any, error) {
		return refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}
