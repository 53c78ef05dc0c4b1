package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the current value of a query from the source of truth.
type Loader func(ctx context.Context) (any, error)

// Entry is a cached query result.
type Entry struct {
	Key       Key
	Value     any
	FetchedAt time.Time
	Stale     bool
}

// Cache is an in-process read-through cache keyed by structured query keys.
// Concurrent loads of the same key share one call to the loader, so an
// invalidation triggers at most one refetch per key no matter how many
// readers ask for it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	flights map[string]*flight
	group   singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

type flight struct {
	key         Key
	invalidated bool
	// superseded is set when Set or Remove wrote the key during the load.
	superseded bool
}

// NewCache creates an empty Cache.
func NewCache(log zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		flights: make(map[string]*flight),
		now:     time.Now,
		log:     log.With().Str("component", "query_cache").Logger(),
	}
}

// Fetch returns the cached value for key, loading it when the key is
// missing or stale. A failed load returns the error; stale data is never
// handed out in its place.
func (c *Cache) Fetch(ctx context.Context, key Key, load Loader) (any, error) {
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && !e.Stale {
		v := e.Value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key, load)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Cache) load(ctx context.Context, key Key, load Loader) (any, error) {
	id := key.String()
	f := &flight{key: key}

	c.mu.Lock()
	c.flights[id] = f
	c.mu.Unlock()

	c.log.Debug().Str("key", id).Msg("Loading query")
	v, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flights[id] == f {
		delete(c.flights, id)
	}
	if err != nil {
		return nil, err
	}
	if f.superseded {
		c.log.Debug().Str("key", id).Msg("Dropped load overtaken by a local write")
		return v, nil
	}
	c.entries[id] = &Entry{
		Key:       key,
		Value:     v,
		FetchedAt: c.now(),
		Stale:     f.invalidated,
	}
	return v, nil
}

// FetchAs is Fetch with a typed loader.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query %s holds %T, not %T", key, v, zero)
	}
	return typed, nil
}

// Peek returns the entry for key without loading.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Set stores a fresh value for key, as after a write-through. A load of the
// key already in flight will not overwrite it.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := key.String()
	c.entries[id] = &Entry{Key: key, Value: value, FetchedAt: c.now()}
	if f, ok := c.flights[id]; ok {
		f.superseded = true
		delete(c.flights, id)
		c.group.Forget(id)
	}
}

// Invalidate marks every entry matching any of the targets as stale, and
// flags in-flight loads of matching keys so their results land stale.
// It returns the keys of the entries it marked.
func (c *Cache) Invalidate(targets ...Key) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var marked []Key
	for _, e := range c.entries {
		if matchesAny(e.Key, targets) {
			e.Stale = true
			marked = append(marked, e.Key)
		}
	}
	for _, f := range c.flights {
		if matchesAny(f.key, targets) {
			f.invalidated = true
		}
	}

	c.log.Debug().
		Int("targets", len(targets)).
		Int("marked", len(marked)).
		Msg("Invalidated queries")
	return marked
}

// Remove drops every entry matching any of the targets. Loads of matching
// keys already in flight will not bring them back.
func (c *Cache) Remove(targets ...Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if matchesAny(e.Key, targets) {
			delete(c.entries, id)
			removed++
		}
	}
	for id, f := range c.flights {
		if matchesAny(f.key, targets) {
			f.superseded = true
			delete(c.flights, id)
			c.group.Forget(id)
		}
	}
	return removed
}

// Len is the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func matchesAny(k Key, targets []Key) bool {
	for _, t := range targets {
		if k.Matches(t) {
			return true
		}
	}
	return false
}
