// Package cache implements the bounded, largest-first-eviction file
// cache of spec.md §4.8: a hash table keyed by file name, paired with a
// size-ordered auxiliary index so the largest entry can be evicted in
// O(log n) instead of a linear scan over a sorted list.
package cache

import (
	"sync"

	"github.com/google/btree"

	"github.com/ostep-labs/gothread/server/internal/filebuf"
)

// Entry is an owned copy of one cached file's data, spec.md §3's
// file_data: {name, buf, size}.
type Entry struct {
	Name string
	Buf  []byte
	Size int
}

// sizeItem orders entries descending by size (ties broken by name) so
// that the btree's Min is always the largest entry — the one evict()
// needs to pop first, per spec.md §4.8.
type sizeItem struct {
	size int
	name string
}

func (a sizeItem) Less(than btree.Item) bool {
	b := than.(sizeItem)
	if a.size != b.size {
		return a.size > b.size
	}
	return a.name < b.name
}

// degree matches the teacher's reclaim-set default for small in-memory
// indices; the cache holds at most a few thousand entries in practice.
const degree = 32

// Cache is the file cache of spec.md §4.8. One mutex serializes every
// mutation and every read that returns an owned copy, matching "a
// single mutex guards both" from the data model.
type Cache struct {
	mu        sync.Mutex
	maxBytes  int
	currBytes int
	entries   map[string]*Entry
	bySize    *btree.BTree
}

// New creates an empty cache with the given byte budget
// (spec.md's max_cache_size).
func New(maxBytes int) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		entries:  make(map[string]*Entry),
		bySize:   btree.New(degree),
	}
}

// Lookup implements spec.md §4.8's lookup(name): on hit, returns a deep
// copy so the caller cannot hold a reference across a later eviction.
func (c *Cache) Lookup(name string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, false
	}
	buf := make([]byte, len(e.Buf))
	copy(buf, e.Buf)
	return Entry{Name: e.Name, Buf: buf, Size: e.Size}, true
}

// Insert implements spec.md §4.8's insert(name, data): refuses data
// larger than the cache's total budget, evicts largest-first until
// there's room, then stores an owned copy. A duplicate name is rejected
// without disturbing the existing entry, matching "refuse and free copy
// if a duplicate name is already present".
func (c *Cache) Insert(name string, data []byte) bool {
	size := len(data)
	if size > c.maxBytes {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return false
	}

	need := size - (c.maxBytes - c.currBytes)
	if need > 0 {
		c.evictLocked(need)
	}

	buf := filebuf.Get(size)
	copy(buf, data)
	e := &Entry{Name: name, Buf: buf, Size: size}
	c.entries[name] = e
	c.bySize.ReplaceOrInsert(sizeItem{size: size, name: name})
	c.currBytes += size
	return true
}

// evictLocked implements spec.md §4.8's evict(need): repeatedly pop the
// largest entry until at least `need` bytes have been freed. Precondition
// (held by every Insert call site): need never exceeds what the cache
// could free by evicting everything currently present.
func (c *Cache) evictLocked(need int) {
	freed := 0
	for freed < need {
		item := c.bySize.Min()
		if item == nil {
			return
		}
		si := item.(sizeItem)
		c.bySize.Delete(si)
		if e, ok := c.entries[si.name]; ok {
			filebuf.Put(e.Buf)
		}
		delete(c.entries, si.name)
		c.currBytes -= si.size
		freed += si.size
	}
}

// Delete removes name from the cache unconditionally (spec.md's
// delete_hash_table lifecycle entry), returning whether it was present.
func (c *Cache) Delete(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return false
	}
	c.bySize.Delete(sizeItem{size: e.Size, name: name})
	filebuf.Put(e.Buf)
	delete(c.entries, name)
	c.currBytes -= e.Size
	return true
}

// Stats is a point-in-time snapshot of the cache's byte accounting.
type Stats struct {
	CurrBytes int
	MaxBytes  int
	Entries   int
}

// Stats reports the cache's current byte accounting, for metrics/tests.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{CurrBytes: c.currBytes, MaxBytes: c.maxBytes, Entries: len(c.entries)}
}

// Names returns the set of currently cached file names, for tests
// asserting exact post-eviction membership.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}
