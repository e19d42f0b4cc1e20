package cache

import (
	"sort"
	"sync"
	"time"
)

// bucket is a lock-protected map of entries with optional byte bound.
type bucket struct {
	sync.RWMutex
	data  map[string]*entry
	bytes int64
}

func newBucket() bucket {
	return bucket{data: make(map[string]*entry)}
}

// read returns entry and removes it if it is expired.
func (b *bucket) read(key string, now time.Time) (e *entry, found, expired bool) {
	b.RLock()
	e, found = b.data[key]
	b.RUnlock()

	if !found || !e.expired(now) {
		return e, found, false
	}

	b.Lock()
	// Entry could have been overwritten since read lock was released.
	if cur, ok := b.data[key]; ok && cur == e {
		b.bytes -= e.S
		delete(b.data, key)
	}
	b.Unlock()

	return e, true, true
}

// write stores entry and evicts oldest entries to fit limit, zero limit means no bound.
func (b *bucket) write(e *entry, limit int64) (stored bool, evicted int) {
	b.Lock()
	defer b.Unlock()

	if prev, ok := b.data[e.K]; ok {
		b.bytes -= prev.S
		delete(b.data, e.K)
	}

	if limit > 0 && e.S > limit {
		return false, 0
	}

	b.data[e.K] = e
	b.bytes += e.S

	if limit > 0 && b.bytes > limit {
		evicted = b.evictOldest(limit, e.K)
	}

	return true, evicted
}

// evictOldest removes entries with earliest creation time until size fits limit.
// Must be called with write lock held.
func (b *bucket) evictOldest(limit int64, keep string) int {
	entries := make([]*entry, 0, len(b.data))

	for _, e := range b.data {
		if e.K != keep {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].C.Before(entries[j].C)
	})

	n := 0

	for _, e := range entries {
		if b.bytes <= limit {
			break
		}

		b.bytes -= e.S
		delete(b.data, e.K)
		n++
	}

	return n
}

func (b *bucket) remove(key string) bool {
	b.Lock()
	defer b.Unlock()

	e, ok := b.data[key]
	if !ok {
		return false
	}

	b.bytes -= e.S
	delete(b.data, key)

	return true
}

// expireAll marks all entries as expired at a moment before now.
func (b *bucket) expireAll(now time.Time) int {
	b.Lock()
	defer b.Unlock()

	exp := now.Add(-time.Nanosecond)

	for k, e := range b.data {
		cp := *e
		cp.E = exp
		b.data[k] = &cp
	}

	return len(b.data)
}

func (b *bucket) deleteAll() int {
	b.Lock()
	defer b.Unlock()

	n := len(b.data)
	b.data = make(map[string]*entry)
	b.bytes = 0

	return n
}

func (b *bucket) deleteExpired(now time.Time) int {
	b.Lock()
	defer b.Unlock()

	n := 0

	for k, e := range b.data {
		if e.expired(now) {
			b.bytes -= e.S
			delete(b.data, k)
			n++
		}
	}

	return n
}

func (b *bucket) stats() (count int, bytes int64) {
	b.RLock()
	defer b.RUnlock()

	return len(b.data), b.bytes
}

func (b *bucket) snapshot() []*entry {
	b.RLock()
	defer b.RUnlock()

	entries := make([]*entry, 0, len(b.data))
	for _, e := range b.data {
		entries = append(entries, e)
	}

	return entries
}
