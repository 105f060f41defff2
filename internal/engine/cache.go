package engine

import (
	"sync"
)

// defaultCacheCapacity bounds the interaction cache when no explicit
// capacity is configured.
const defaultCacheCapacity = 100

// CacheEntry is one generated answer awaiting feedback.
type CacheEntry struct {
	// ID is the interaction identifier returned to the caller.
	ID string
	// Query is the original question text.
	Query string
	// Answer is the generated answer text.
	Answer string
}

// InteractionCache is a bounded in-memory FIFO map from interaction ID to
// the query/answer pair awaiting feedback. Entries are never mutated after
// insertion and never touched again by reads, so insertion order and access
// order coincide: eviction is strictly oldest-inserted-first.
//
// All methods are safe for concurrent use. Callers must not hold other locks
// or perform blocking I/O while calling in — encoding and generation happen
// before the cache is touched.
type InteractionCache struct {
	mu sync.Mutex

	// capacity is the maximum number of entries retained.
	capacity int

	// entries maps interaction ID to its cached pair.
	entries map[string]CacheEntry

	// order holds IDs in insertion order; order[0] is the eviction candidate.
	order []string
}

// NewInteractionCache constructs an InteractionCache with the given capacity.
// A non-positive capacity selects the default of 100.
func NewInteractionCache(capacity int) *InteractionCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &InteractionCache{
		capacity: capacity,
		entries:  make(map[string]CacheEntry, capacity),
	}
}

// Put inserts an entry. If the insertion pushes the cache past capacity the
// single oldest surviving entry is evicted. Insert and evict happen under
// one lock acquisition so size accounting is never observably wrong.
func (c *InteractionCache) Put(id, query, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		c.order = append(c.order, id)
	}
	c.entries[id] = CacheEntry{ID: id, Query: query, Answer: answer}

	for len(c.entries) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Get returns the entry for id without removing it. Feedback resubmission
// for the same id is therefore safe; promotion idempotence is the feedback
// processor's concern, not the cache's.
func (c *InteractionCache) Get(id string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Len returns the current number of cached entries.
func (c *InteractionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
