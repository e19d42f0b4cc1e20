package cache

import (
	"context"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	_ ReadWriter = &ShardedMap{}
	_ Deleter    = &ShardedMap{}
	_ Walker     = &ShardedMap{}
)

const shards = 64

// ShardedMap is an in-memory cache split in buckets by key hash to reduce lock contention.
//
// MemoryConfig.MaxBytes is divided evenly between buckets, a bucket holding
// an entry larger than its share keeps only that entry.
// Please use NewShardedMap to create instance.
type ShardedMap struct {
	*shardedMap
}

type shardedMap struct {
	buckets [shards]bucket

	*trait
}

// NewShardedMap creates an instance of sharded in-memory cache with optional configuration.
func NewShardedMap(cfg ...MemoryConfig) *ShardedMap {
	config := MemoryConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	c := &shardedMap{}
	C := &ShardedMap{shardedMap: c}

	for i := 0; i < shards; i++ {
		c.buckets[i] = newBucket()
	}

	c.trait = newTrait(c, config)

	runtime.SetFinalizer(C, func(m *ShardedMap) {
		m.Close()
	})

	return C
}

func (c *shardedMap) bucketFor(key string) *bucket {
	return &c.buckets[xxhash.Sum64String(key)%shards]
}

// bucketLimit returns byte bound of a bucket for entry e.
//
// Bucket gets an even share of MaxBytes, an entry that exceeds the share but
// fits MaxBytes widens the bound of its bucket to its own size.
func (c *shardedMap) bucketLimit(e *entry) int64 {
	if c.config.MaxBytes <= 0 {
		return 0
	}

	limit := c.config.MaxBytes / shards
	if limit == 0 {
		limit = 1
	}

	if e.S > limit && e.S <= c.config.MaxBytes {
		limit = e.S
	}

	return limit
}

// Read gets value.
func (c *shardedMap) Read(ctx context.Context, key string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	e, found, expired := c.bucketFor(key).read(key, c.now())

	return c.prepareRead(ctx, key, e, found, expired)
}

// Write sets value.
func (c *shardedMap) Write(ctx context.Context, key string, value interface{}) error {
	e := c.newEntry(key, value)
	stored, evicted := c.bucketFor(key).write(e, c.bucketLimit(e))

	c.afterWrite(ctx, e, stored, evicted)

	return nil
}

// Delete removes entry.
func (c *shardedMap) Delete(ctx context.Context, key string) error {
	if !c.bucketFor(key).remove(key) {
		return ErrCacheItemNotFound
	}

	c.log.Debug(ctx, "deleted cache entry", "name", c.config.Name, "key", key)
	c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)

	return nil
}

// ExpireAll marks all entries as expired.
func (c *shardedMap) ExpireAll() {
	start := time.Now()
	now := c.now()
	cnt := 0

	for i := range c.buckets {
		cnt += c.buckets[i].expireAll(now)
	}

	c.log.Important(context.Background(), "expired all entries in cache",
		"name", c.config.Name,
		"elapsed", time.Since(start).String(),
		"count", cnt,
	)
}

// DeleteAll erases all entries.
func (c *shardedMap) DeleteAll() {
	cnt := 0

	for i := range c.buckets {
		cnt += c.buckets[i].deleteAll()
	}

	c.log.Important(context.Background(), "deleted all entries in cache",
		"name", c.config.Name,
		"count", cnt,
	)
}

// Len returns number of elements in cache.
func (c *shardedMap) Len() int {
	cnt, _ := c.usage()

	return cnt
}

// Walk walks cached entries.
func (c *shardedMap) Walk(walkFn func(e Entry) error) (int, error) {
	n := 0

	for i := range c.buckets {
		for _, e := range c.buckets[i].snapshot() {
			if err := walkFn(e); err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}

func (c *shardedMap) deleteExpired(now time.Time) int {
	n := 0

	for i := range c.buckets {
		n += c.buckets[i].deleteExpired(now)
	}

	return n
}

func (c *shardedMap) usage() (count int, bytes int64) {
	for i := range c.buckets {
		cnt, b := c.buckets[i].stats()
		count += cnt
		bytes += b
	}

	return count, bytes
}

func (c *shardedMap) restore(e *entry) {
	c.bucketFor(e.K).write(e, c.bucketLimit(e))
}
