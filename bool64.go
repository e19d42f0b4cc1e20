package cache

import (
	"context"
	"errors"

	bcache "github.com/bool64/cache"
	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

var _ ReadWriter = &Bool64{}

// Bool64 adapts a github.com/bool64/cache storage with byte slice keys.
//
// Expiration is controlled by the underlying storage, expired values that it
// keeps for stale serving are reported as misses and deleted.
type Bool64 struct {
	rw   bcache.ReadWriter
	name string
	log  ctxd.Logger
	stat stats.Tracker
}

// NewBool64 creates adapter, only Name, Logger and Stats of MemoryConfig are used.
func NewBool64(rw bcache.ReadWriter, cfg ...MemoryConfig) *Bool64 {
	config := MemoryConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	config = config.withDefaults()

	return &Bool64{
		rw:   rw,
		name: config.Name,
		log:  config.Logger,
		stat: config.Stats,
	}
}

// Read gets value.
func (b *Bool64) Read(ctx context.Context, key string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	v, err := b.rw.Read(ctx, []byte(key))

	switch {
	case err == nil:
		b.stat.Add(ctx, MetricHit, 1, "name", b.name)

		return v, nil
	case errors.Is(err, bcache.ErrExpired):
		b.stat.Add(ctx, MetricExpired, 1, "name", b.name)

		if d, ok := b.rw.(bcache.Deleter); ok {
			if err := d.Delete(ctx, []byte(key)); err != nil && !errors.Is(err, bcache.ErrNotFound) {
				b.log.Warn(ctx, "failed to delete expired cache entry", "error", err, "name", b.name, "key", key)
			}
		}

		return nil, errExpired{entry: &entry{K: key}}
	case errors.Is(err, bcache.ErrNotFound):
		b.stat.Add(ctx, MetricMiss, 1, "name", b.name)

		return nil, ErrCacheItemNotFound
	default:
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}
}

// Write sets value.
func (b *Bool64) Write(ctx context.Context, key string, value interface{}) error {
	if err := b.rw.Write(ctx, []byte(key), value); err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}

	b.stat.Add(ctx, MetricWrite, 1, "name", b.name)

	return nil
}

// ExpireAll marks all entries of underlying storage as expired if it supports that.
func (b *Bool64) ExpireAll() {
	ctx := context.Background()

	switch e := b.rw.(type) {
	case interface{ ExpireAll(ctx context.Context) }:
		e.ExpireAll(ctx)
	case interface{ ExpireAll() }:
		e.ExpireAll()
	default:
		b.log.Warn(ctx, "cache storage does not support expiration", "name", b.name)

		return
	}

	b.log.Important(ctx, "expired all entries in cache", "name", b.name)
}
