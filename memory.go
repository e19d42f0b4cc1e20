package cache

import (
	"context"
	"runtime"
	"time"
)

var (
	_ ReadWriter = &Memory{}
	_ Deleter    = &Memory{}
	_ Walker     = &Memory{}
)

// Memory is an in-memory cache with a single TTL for all entries.
//
// Please use NewMemory to create instance.
type Memory struct {
	*memory
}

type memory struct {
	b bucket

	*trait
}

// NewMemory creates an instance of in-memory cache with optional configuration.
func NewMemory(cfg ...MemoryConfig) *Memory {
	config := MemoryConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	c := &memory{b: newBucket()}
	C := &Memory{memory: c}

	c.trait = newTrait(c, config)

	runtime.SetFinalizer(C, func(m *Memory) {
		m.Close()
	})

	return C
}

// Read gets value.
func (c *memory) Read(ctx context.Context, key string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	e, found, expired := c.b.read(key, c.now())

	return c.prepareRead(ctx, key, e, found, expired)
}

// Write sets value.
func (c *memory) Write(ctx context.Context, key string, value interface{}) error {
	e := c.newEntry(key, value)
	stored, evicted := c.b.write(e, c.config.MaxBytes)

	c.afterWrite(ctx, e, stored, evicted)

	return nil
}

// Delete removes entry.
func (c *memory) Delete(ctx context.Context, key string) error {
	if !c.b.remove(key) {
		return ErrCacheItemNotFound
	}

	c.log.Debug(ctx, "deleted cache entry", "name", c.config.Name, "key", key)
	c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)

	return nil
}

// ExpireAll marks all entries as expired.
func (c *memory) ExpireAll() {
	start := time.Now()
	cnt := c.b.expireAll(c.now())

	c.log.Important(context.Background(), "expired all entries in cache",
		"name", c.config.Name,
		"elapsed", time.Since(start).String(),
		"count", cnt,
	)
}

// DeleteAll erases all entries.
func (c *memory) DeleteAll() {
	cnt := c.b.deleteAll()

	c.log.Important(context.Background(), "deleted all entries in cache",
		"name", c.config.Name,
		"count", cnt,
	)
}

// Len returns number of elements in cache.
func (c *memory) Len() int {
	cnt, _ := c.b.stats()

	return cnt
}

// Bytes returns estimated size of stored entries.
func (c *memory) Bytes() int64 {
	_, b := c.b.stats()

	return b
}

// Walk walks cached entries.
func (c *memory) Walk(walkFn func(e Entry) error) (int, error) {
	n := 0

	for _, e := range c.b.snapshot() {
		if err := walkFn(e); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}

func (c *memory) deleteExpired(now time.Time) int {
	return c.b.deleteExpired(now)
}

func (c *memory) usage() (int, int64) {
	return c.b.stats()
}

func (c *memory) restore(e *entry) {
	c.b.write(e, c.config.MaxBytes)
}
