package cache

import (
	"context"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	gocache "github.com/patrickmn/go-cache"
)

var (
	_ ReadWriter = &GoCache{}
	_ Deleter    = &GoCache{}
)

// GoCache is a storage on top of github.com/patrickmn/go-cache.
//
// Only Name, TimeToLive, DeleteExpiredJobInterval, Logger and Stats of MemoryConfig are used,
// entries expire by wall clock.
type GoCache struct {
	c    *gocache.Cache
	name string
	log  ctxd.Logger
	stat stats.Tracker
}

// NewGoCache creates go-cache storage.
func NewGoCache(cfg ...MemoryConfig) *GoCache {
	config := MemoryConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	config = config.withDefaults()

	// Non-positive cleanup interval disables go-cache janitor.
	return &GoCache{
		c:    gocache.New(config.TimeToLive, config.DeleteExpiredJobInterval),
		name: config.Name,
		log:  config.Logger,
		stat: config.Stats,
	}
}

// Read gets value.
func (g *GoCache) Read(ctx context.Context, key string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	v, found := g.c.Get(key)
	if !found {
		// Expired items are kept by go-cache until janitor run.
		g.c.Delete(key)

		g.log.Debug(ctx, "cache miss", "name", g.name, "key", key)
		g.stat.Add(ctx, MetricMiss, 1, "name", g.name)

		return nil, ErrCacheItemNotFound
	}

	g.stat.Add(ctx, MetricHit, 1, "name", g.name)

	return v, nil
}

// Write sets value.
func (g *GoCache) Write(ctx context.Context, key string, value interface{}) error {
	g.c.Set(key, value, gocache.DefaultExpiration)

	g.log.Debug(ctx, "wrote to cache", "name", g.name, "key", key, "value", value)
	g.stat.Add(ctx, MetricWrite, 1, "name", g.name)

	return nil
}

// Delete removes entry.
func (g *GoCache) Delete(ctx context.Context, key string) error {
	if _, found := g.c.Get(key); !found {
		return ErrCacheItemNotFound
	}

	g.c.Delete(key)
	g.stat.Add(ctx, MetricDelete, 1, "name", g.name)

	return nil
}

// ExpireAll marks all entries as expired.
func (g *GoCache) ExpireAll() {
	for k, item := range g.c.Items() {
		g.c.Set(k, item.Object, time.Nanosecond)
	}
}

// DeleteAll erases all entries.
func (g *GoCache) DeleteAll() {
	g.c.Flush()
}

// Len returns number of elements in cache, including expired ones not yet deleted.
func (g *GoCache) Len() int {
	return g.c.ItemCount()
}
