package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	bcache "github.com/bool64/cache"
	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/fetchcache"
)

func TestBool64(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}

	c := cache.NewBool64(bcache.NewShardedMap(func(cfg *bcache.Config) {
		cfg.TimeToLive = 20 * time.Millisecond
	}), cache.MemoryConfig{Name: "b64", Stats: st})

	_, err := c.Read(ctx, "BBC")
	assert.Equal(t, cache.ErrCacheItemNotFound, err)

	require.NoError(t, c.Write(ctx, "BBC", []string{"British Broadcasting Corporation"}))

	v, err := c.Read(ctx, "BBC")
	require.NoError(t, err)
	assert.Equal(t, []string{"British Broadcasting Corporation"}, v)

	_, err = c.Read(cache.WithSkipRead(ctx), "BBC")
	assert.Equal(t, cache.ErrCacheItemNotFound, err)

	time.Sleep(50 * time.Millisecond)

	v, err = c.Read(ctx, "BBC")
	assert.Nil(t, v)
	assert.True(t, errors.Is(err, cache.ErrExpiredCacheItem))
	assert.True(t, errors.Is(err, cache.ErrCacheItemNotFound))

	_, err = c.Read(ctx, "BBC")
	assert.Equal(t, cache.ErrCacheItemNotFound, err)

	assert.Equal(t, 2, st.Int(cache.MetricMiss))
	assert.Equal(t, 1, st.Int(cache.MetricHit))
	assert.Equal(t, 1, st.Int(cache.MetricExpired))
	assert.Equal(t, 1, st.Int(cache.MetricWrite))
}

type brokenBool64 struct{}

func (brokenBool64) Read(_ context.Context, _ []byte) (interface{}, error) {
	return nil, errors.New("disk failure")
}

func (brokenBool64) Write(_ context.Context, _ []byte, _ interface{}) error {
	return errors.New("disk failure")
}

func TestBool64_storageError(t *testing.T) {
	ctx := context.Background()
	c := cache.NewBool64(brokenBool64{})

	var se *cache.StorageError

	_, err := c.Read(ctx, "BBC")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "read", se.Op)
	assert.EqualError(t, se.Err, "disk failure")

	err = c.Write(ctx, "BBC", 1)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)
}

func TestBool64_ExpireAll(t *testing.T) {
	ctx := context.Background()
	c := cache.NewBool64(bcache.NewShardedMap(func(cfg *bcache.Config) {
		cfg.TimeToLive = time.Hour
	}))

	require.NoError(t, c.Write(ctx, "NASA", 1))

	inv := &cache.Invalidator{Callbacks: []func(){c.ExpireAll}}
	require.NoError(t, inv.Invalidate(ctx))

	_, err := c.Read(ctx, "NASA")
	assert.True(t, errors.Is(err, cache.ErrExpiredCacheItem))

	// Storage without expiration support is left intact.
	broken := cache.NewBool64(brokenBool64{})
	broken.ExpireAll()
}
