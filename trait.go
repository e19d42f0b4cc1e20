package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// MemoryConfig controls in-memory cache instance.
type MemoryConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is delay before entry expiration, default 10s.
	TimeToLive time.Duration

	// MaxBytes is a soft bound of total estimated entries size, 0 disables the bound.
	//
	// When exceeded, oldest entries are evicted.
	MaxBytes int64

	// Sizer estimates entry size in bytes, EstimateSize is used by default.
	Sizer func(key string, value interface{}) int

	// Now returns current time, time.Now by default.
	Now func() time.Time

	// ExpirationJitter is a fraction of TTL to randomize, disabled by default.
	// If enabled, entry TTL will be randomly altered in bounds of ±(ExpirationJitter * TTL / 2).
	ExpirationJitter float64

	// DeleteExpiredJobInterval is delay between two consecutive cleanups of expired entries.
	// Expired entries are always removed on read, background cleanup is disabled by default.
	DeleteExpiredJobInterval time.Duration

	// ItemsCountReportInterval is items count metric report interval, disabled by default.
	ItemsCountReportInterval time.Duration
}

func (cfg MemoryConfig) withDefaults() MemoryConfig {
	if cfg.TimeToLive == 0 {
		cfg.TimeToLive = DefaultTimeToLive
	}

	if cfg.Sizer == nil {
		cfg.Sizer = EstimateSize
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = ctxd.NoOpLogger{}
	}

	if cfg.Stats == nil {
		cfg.Stats = stats.NoOp{}
	}

	return cfg
}

// backend is implemented by storages that share trait.
type backend interface {
	deleteExpired(now time.Time) int
	usage() (count int, bytes int64)
}

// trait implements behavior common to in-memory backends.
type trait struct {
	config MemoryConfig
	log    ctxd.Logger
	stat   stats.Tracker

	closed    chan struct{}
	closeOnce sync.Once
}

func newTrait(b backend, cfg MemoryConfig) *trait {
	cfg = cfg.withDefaults()

	t := &trait{
		config: cfg,
		log:    cfg.Logger,
		stat:   cfg.Stats,
		closed: make(chan struct{}),
	}

	if cfg.DeleteExpiredJobInterval > 0 {
		go t.janitor(b)
	}

	if cfg.ItemsCountReportInterval > 0 {
		go t.reportItemsCount(b)
	}

	return t
}

func (t *trait) now() time.Time {
	return t.config.Now()
}

// newEntry creates entry for current time and TTL.
func (t *trait) newEntry(key string, value interface{}) *entry {
	ttl := t.config.TimeToLive

	if t.config.ExpirationJitter > 0 {
		ttl += time.Duration(float64(ttl) * t.config.ExpirationJitter * (rand.Float64() - 0.5)) // nolint:gosec
	}

	now := t.now()

	return &entry{
		K: key,
		V: value,
		C: now,
		E: now.Add(ttl),
		S: int64(t.config.Sizer(key, value)),
	}
}

func (t *trait) prepareRead(ctx context.Context, key string, e *entry, found, expired bool) (interface{}, error) {
	if !found {
		t.log.Debug(ctx, "cache miss", "name", t.config.Name, "key", key)
		t.stat.Add(ctx, MetricMiss, 1, "name", t.config.Name)

		return nil, ErrCacheItemNotFound
	}

	if expired {
		t.log.Debug(ctx, "cache key expired", "name", t.config.Name, "key", key)
		t.stat.Add(ctx, MetricExpired, 1, "name", t.config.Name)

		return nil, errExpired{entry: e}
	}

	t.log.Debug(ctx, "cache hit", "name", t.config.Name, "key", key)
	t.stat.Add(ctx, MetricHit, 1, "name", t.config.Name)

	return e.V, nil
}

func (t *trait) afterWrite(ctx context.Context, e *entry, stored bool, evicted int) {
	if !stored {
		t.log.Warn(ctx, "value exceeds cache size bound",
			"name", t.config.Name, "key", e.K, "size", e.S, "maxBytes", t.config.MaxBytes)

		return
	}

	t.log.Debug(ctx, "wrote to cache", "name", t.config.Name, "key", e.K, "value", e.V, "expireAt", e.E)
	t.stat.Add(ctx, MetricWrite, 1, "name", t.config.Name)

	if evicted > 0 {
		t.log.Debug(ctx, "evicted oldest cache entries", "name", t.config.Name, "count", evicted)
		t.stat.Add(ctx, MetricEvict, float64(evicted), "name", t.config.Name)
	}
}

// Close stops background jobs.
func (t *trait) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

func (t *trait) janitor(b backend) {
	ticker := time.NewTicker(t.config.DeleteExpiredJobInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n := b.deleteExpired(t.now())
			if n > 0 {
				t.log.Debug(context.Background(), "deleted expired cache items",
					"name", t.config.Name, "count", n)
			}
		case <-t.closed:
			return
		}
	}
}

func (t *trait) reportItemsCount(b backend) {
	ticker := time.NewTicker(t.config.ItemsCountReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, bytes := b.usage()

			t.stat.Set(context.Background(), MetricItems, float64(count), "name", t.config.Name)
			t.stat.Set(context.Background(), MetricBytes, float64(bytes), "name", t.config.Name)
		case <-t.closed:
			return
		}
	}
}
