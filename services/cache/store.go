package cache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

const shardCount = 16

// entry is one timestamped value. Entries stay resident past their TTL so
// callers can fall back to stale data while a refetch is in flight.
type entry struct {
	value      interface{}
	storedAt   time.Time
	lastAccess time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store is an in-memory TTL cache sharded by key hash. Each key has a single
// logical writer (the aggregator's write-back path); reads and writes on
// different shards never contend.
type Store struct {
	shards [shardCount]*shard
	ttl    time.Duration
}

// NewStore creates a store whose entries are considered fresh for ttl after
// each Set.
func NewStore(ttl time.Duration) *Store {
	s := &Store{ttl: ttl}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the value for key. found is true for any resident entry
// regardless of age; fresh is true only within the TTL. Callers decide
// whether stale data is acceptable.
func (s *Store) Get(key string) (value interface{}, found bool, fresh bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return nil, false, false
	}
	e.lastAccess = time.Now()
	return e.value, true, time.Since(e.storedAt) < s.ttl
}

// Age returns how long ago key was last populated.
func (s *Store) Age(key string) (time.Duration, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.entries[key]
	if !ok {
		return 0, false
	}
	return time.Since(e.storedAt), true
}

// Set overwrites key unconditionally and resets its freshness window.
func (s *Store) Set(key string, value interface{}) {
	now := time.Now()
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = &entry{value: value, storedAt: now, lastAccess: now}
	sh.mu.Unlock()
}

// Invalidate removes key so a subsequent Get reports not-found. Returns
// whether the key was resident.
func (s *Store) Invalidate(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.entries[key]; !ok {
		return false
	}
	delete(sh.entries, key)
	return true
}

// InvalidatePrefix removes every key with the given prefix (e.g. a category
// tag). Returns the number of entries cleared.
func (s *Store) InvalidatePrefix(prefix string) int {
	cleared := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k := range sh.entries {
			if strings.HasPrefix(k, prefix) {
				delete(sh.entries, k)
				cleared++
			}
		}
		sh.mu.Unlock()
	}
	return cleared
}

// InvalidateAll clears the whole store. Returns the number of entries
// cleared.
func (s *Store) InvalidateAll() int {
	cleared := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		cleared += len(sh.entries)
		sh.entries = make(map[string]*entry)
		sh.mu.Unlock()
	}
	return cleared
}

// Len returns the number of resident entries, fresh or stale.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep reclaims entries not read or written for longer than maxAge. This is
// a memory bound, not an eviction policy: staleness alone never removes an
// entry. Driven by the background job, never by request handling.
func (s *Store) Sweep(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.lastAccess.Before(cutoff) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
