// Package conditions holds the engine's shared mutable state: the point-in-
// time condition cache and the per-location strike detector. Both shard by
// location so a write to one key never serializes readers of another.
package conditions

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

const shardCount = 16

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]models.ScoredReading
}

// Cache maps locationID to its latest ScoredReading. Entries are replaced
// whole on each successful refresh and never evicted on failure: a stale
// last-known-good beats an empty answer. Values put here are treated as
// immutable.
type Cache struct {
	shards [shardCount]cacheShard

	completedMu   sync.RWMutex
	lastCompleted time.Time
}

func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]models.ScoredReading)
	}
	return c
}

// Get returns the current entry for a location. A miss means the location has
// never been successfully fetched.
func (c *Cache) Get(locationID string) (models.ScoredReading, bool) {
	sh := &c.shards[shardIndex(locationID)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	sr, ok := sh.entries[locationID]
	return sr, ok
}

// Put replaces the entry for sr.LocationID atomically. Readers observe the
// old value or the new one, never a mixture.
func (c *Cache) Put(sr models.ScoredReading) {
	sh := &c.shards[shardIndex(sr.LocationID)]
	sh.mu.Lock()
	sh.entries[sr.LocationID] = sr
	sh.mu.Unlock()
}

// All returns a copy of every entry.
func (c *Cache) All() map[string]models.ScoredReading {
	out := make(map[string]models.ScoredReading)
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		for id, sr := range sh.entries {
			out[id] = sr
		}
		sh.mu.RUnlock()
	}
	return out
}

// ByDomain returns a copy of every entry in the given domain. An empty domain
// matches everything.
func (c *Cache) ByDomain(d models.Domain) map[string]models.ScoredReading {
	out := make(map[string]models.ScoredReading)
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		for id, sr := range sh.entries {
			if d == "" || sr.Domain == d {
				out[id] = sr
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Len reports how many locations have an entry.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// SetLastCycleCompleted records when the most recent refresh cycle finished.
func (c *Cache) SetLastCycleCompleted(t time.Time) {
	c.completedMu.Lock()
	c.lastCompleted = t
	c.completedMu.Unlock()
}

// LastCycleCompleted returns the completion time of the most recent cycle and
// whether any cycle has completed yet.
func (c *Cache) LastCycleCompleted() (time.Time, bool) {
	c.completedMu.RLock()
	defer c.completedMu.RUnlock()
	return c.lastCompleted, !c.lastCompleted.IsZero()
}
