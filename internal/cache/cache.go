// Package cache is a volatile, time-boxed in-memory store used to avoid
// redundant network fetches. It offers no durability: entries live for a
// fixed TTL or until explicit invalidation.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Stats describes the stored entries at one instant.
type Stats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
	seq       uint64
}

// Cache is a key/value store with a fixed TTL and a soft capacity.
// Reads treat expired entries as misses without evicting them eagerly;
// writes past capacity drop the least-recently-written entries. Safe for
// concurrent use by independent fetch flows.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]entry
	seq      uint64
	now      func() time.Time
}

// New creates a cache with the given TTL and capacity. A capacity of 0
// means unbounded.
func New(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// Key builds the composite cache key for a query against one repository.
// The owner/repo prefix is what Invalidate matches on.
func Key(owner, repo, kind string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(owner)
	b.WriteString("/")
	b.WriteString(repo)
	b.WriteString("|")
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteString("|")
		b.WriteString(p)
	}
	return b.String()
}

// repoPrefix is the key prefix covering every entry of one repository.
func repoPrefix(owner, repo string) string {
	return owner + "/" + repo + "|"
}

// Get returns the value for key, or ok=false on a miss. An entry past
// its expiry is a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any previous entry. When the
// capacity is exceeded the least-recently-written entries are dropped.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.seq++
	c.entries[key] = entry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(c.ttl),
		seq:       c.seq,
	}
	if c.capacity > 0 && len(c.entries) > c.capacity {
		c.evictOldestLocked(len(c.entries) - c.capacity)
	}
}

// evictOldestLocked drops the n least-recently-written entries.
func (c *Cache) evictOldestLocked(n int) {
	for ; n > 0; n-- {
		var oldestKey string
		var oldestSeq uint64
		for k, e := range c.entries {
			if oldestKey == "" || e.seq < oldestSeq {
				oldestKey = k
				oldestSeq = e.seq
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Invalidate drops every entry belonging to the given repository and
// returns how many were removed.
func (c *Cache) Invalidate(owner, repo string) int {
	return c.invalidatePrefix(repoPrefix(owner, repo))
}

func (c *Cache) invalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Sweep drops expired entries and returns how many were removed. Reads
// never depend on it; it only bounds memory between scheduled runs.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats counts stored entries, splitting valid from expired.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			s.Valid++
		} else {
			s.Expired++
		}
	}
	return s
}
