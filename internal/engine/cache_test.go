package engine

import (
	"fmt"
	"sync"
	"testing"
)

func TestInteractionCache_PutGet(t *testing.T) {
	t.Parallel()

	c := NewInteractionCache(10)
	c.Put("id-1", "what is qdrant", "a vector database")

	entry, ok := c.Get("id-1")
	if !ok {
		t.Fatal("expected entry for id-1")
	}
	if entry.Query != "what is qdrant" || entry.Answer != "a vector database" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestInteractionCache_GetDoesNotRemove(t *testing.T) {
	t.Parallel()

	c := NewInteractionCache(10)
	c.Put("id-1", "q", "a")

	for i := 0; i < 3; i++ {
		if _, ok := c.Get("id-1"); !ok {
			t.Fatalf("entry vanished after %d reads", i)
		}
	}
}

func TestInteractionCache_FIFOEviction(t *testing.T) {
	t.Parallel()

	c := NewInteractionCache(3)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("id-%d", i), "q", "a")
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	// Fourth insert evicts the oldest entry only.
	c.Put("id-3", "q", "a")

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3 after eviction", c.Len())
	}
	if _, ok := c.Get("id-0"); ok {
		t.Error("oldest entry id-0 should be evicted")
	}
	for _, id := range []string{"id-1", "id-2", "id-3"} {
		if _, ok := c.Get(id); !ok {
			t.Errorf("entry %s should survive eviction", id)
		}
	}
}

func TestInteractionCache_RepeatedIDDoesNotGrow(t *testing.T) {
	t.Parallel()

	c := NewInteractionCache(5)
	c.Put("id-1", "q", "first")
	c.Put("id-1", "q", "second")

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	entry, _ := c.Get("id-1")
	if entry.Answer != "second" {
		t.Errorf("Answer = %q, want overwrite to %q", entry.Answer, "second")
	}
}

func TestInteractionCache_ConcurrentPutStaysBounded(t *testing.T) {
	t.Parallel()

	const (
		capacity   = 16
		goroutines = 8
		perG       = 50
	)
	c := NewInteractionCache(capacity)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				id := fmt.Sprintf("id-%d-%d", g, i)
				c.Put(id, "q", "a")
				c.Get(id)
				c.Len()
			}
		}(g)
	}
	wg.Wait()

	// 400 inserts of distinct ids through 8 goroutines: insert+evict are one
	// lock acquisition, so the cache must land exactly at capacity.
	if c.Len() != capacity {
		t.Errorf("Len() = %d, want %d", c.Len(), capacity)
	}

	// Exactly capacity of the 400 distinct ids survive, each with its
	// content intact — no lost or half-written entries.
	survivors := 0
	for g := 0; g < goroutines; g++ {
		for i := 0; i < perG; i++ {
			entry, ok := c.Get(fmt.Sprintf("id-%d-%d", g, i))
			if !ok {
				continue
			}
			survivors++
			if entry.Query != "q" || entry.Answer != "a" {
				t.Errorf("corrupt entry: %+v", entry)
			}
		}
	}
	if survivors != capacity {
		t.Errorf("survivors = %d, want %d", survivors, capacity)
	}
}

func TestInteractionCache_DefaultCapacity(t *testing.T) {
	t.Parallel()

	c := NewInteractionCache(0)
	for i := 0; i < 150; i++ {
		c.Put(fmt.Sprintf("id-%d", i), "q", "a")
	}
	if c.Len() != defaultCacheCapacity {
		t.Errorf("Len() = %d, want %d", c.Len(), defaultCacheCapacity)
	}
	if _, ok := c.Get("id-49"); ok {
		t.Error("id-49 should be evicted at capacity 100")
	}
	if _, ok := c.Get("id-50"); !ok {
		t.Error("id-50 should survive at capacity 100")
	}
}
