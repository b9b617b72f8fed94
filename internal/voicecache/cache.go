// Package voicecache provides a per-session, content-addressed cache of
// synthesized audio keyed by (text, voice). The cache is an optimization
// only: a miss always falls through to synthesis, and concurrent misses
// for the same key are coalesced into a single upstream call.
package voicecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const keySeparator = "\x1f"

// SynthesizeFunc produces audio bytes for the text the cache key was
// built from. It is only invoked on a miss.
type SynthesizeFunc func(ctx context.Context) ([]byte, error)

type entry struct {
	audio     []byte
	createdAt time.Time
}

// Cache maps (text, voice) to synthesized audio bytes, bounded in size
// with oldest-first eviction. Keys use exact string equality; no fuzzy
// matching, so audio is never served for semantically different text.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	order    []string // insertion order, oldest first
	capacity int

	flight singleflight.Group

	hits   int64
	misses int64
}

// New creates a cache bounded to capacity entries. A non-positive
// capacity falls back to a single entry.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		entries:  make(map[string]entry),
		capacity: capacity,
	}
}

func cacheKey(text, voice string) string {
	return text + keySeparator + voice
}

// Get is a pure lookup with no side effects beyond hit/miss counters.
func (c *Cache) Get(text, voice string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(text, voice)]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.audio, true
}

// GetOrSynthesize returns cached audio for (text, voice), synthesizing
// on a miss. Concurrent callers for the same key share a single
// in-flight synthesis call and all receive its result. A failed
// synthesis is surfaced to every waiter and never cached, so a
// subsequent request retries.
func (c *Cache) GetOrSynthesize(ctx context.Context, text, voice string, fn SynthesizeFunc) ([]byte, error) {
	key := cacheKey(text, voice)

	if audio, ok := c.Get(text, voice); ok {
		return audio, nil
	}

	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a previous caller may have
		// populated the entry between our miss and this call.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return e.audio, nil
		}
		c.mu.Unlock()

		audio, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.insert(key, audio)
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// insert stores a completed synthesis and evicts oldest entries beyond
// capacity. In-flight syntheses are tracked by the flight group, not
// the entry map, so eviction can never touch them.
func (c *Cache) insert(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = entry{audio: audio, createdAt: time.Now()}
	c.order = append(c.order, key)

	for len(c.entries) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports hit/miss counters and current size.
func (c *Cache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = nil
}
