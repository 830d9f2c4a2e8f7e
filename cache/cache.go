// Package cache provides the single-flight packument cache. Concurrent
// requests for the same canonical packument URL share one upstream fetch;
// completed documents are retained for the lifetime of the cache instance.
//
// A cache is always an explicit dependency of its callers. Constructing one
// per command shares packuments across a whole run; constructing one per
// call isolates it. There is no package-level instance.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jablko/pacote/packument"
)

// Cache is a keyed store of fetched packuments with single-flight semantics
// for in-flight fetches. The zero value is not usable; use New.
type Cache struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*packument.Packument
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string]*packument.Packument{}}
}

// Get returns the completed packument stored under key, if any.
func (c *Cache) Get(key string) (*packument.Packument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

// Put stores a completed packument under key, replacing any previous entry.
func (c *Cache) Put(key string, p *packument.Packument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = p
}

// Remove drops the entry for key, both completed and in-flight, so the next
// GetOrFetch starts fresh.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// GetOrFetch returns the packument for key, fetching it at most once.
//
// The first caller for an uncached key installs an in-flight placeholder and
// runs fetch; concurrent callers for the same key wait on that placeholder
// and receive the same result. A successful fetch is stored under key. A
// failed fetch stores nothing and clears the placeholder, so a later call
// retries cleanly instead of replaying the error.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (*packument.Packument, error)) (*packument.Packument, error) {
	if p, ok := c.Get(key); ok {
		return p, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A fetch completing between the Get above and Do winning the key
		// already populated the store.
		if p, ok := c.Get(key); ok {
			return p, nil
		}
		p, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, p)
		return p, nil
	})
	if err != nil {
		c.group.Forget(key)
		return nil, err
	}
	return v.(*packument.Packument), nil
}
