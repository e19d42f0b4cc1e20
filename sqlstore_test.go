package cache_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/fetchcache"
)

func newSQLiteStore(t *testing.T, cfg cache.SQLStoreConfig) *cache.SQLStore {
	t.Helper()

	s, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestSQLStore_timeToLive(t *testing.T) {
	clk := newClock()
	s := newSQLiteStore(t, cache.SQLStoreConfig{Now: clk.Now, TimeToLive: 10 * time.Second})

	testTimeToLive(t, s, clk)
}

func TestSQLStore_values(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}
	s := newSQLiteStore(t, cache.SQLStoreConfig{Name: "sql", Stats: st})

	bbc := acronym{Short: "BBC", Long: []string{"British Broadcasting Corporation", "Blood-Brain Barrier"}}

	require.NoError(t, s.Write(ctx, "BBC", bbc))
	require.NoError(t, s.Write(ctx, "n", 123))

	v, err := s.Read(ctx, "BBC")
	require.NoError(t, err)
	assert.Equal(t, bbc, v)

	v, err = s.Read(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, 123, v)

	_, err = s.Read(cache.WithSkipRead(ctx), "n")
	assert.Equal(t, cache.ErrCacheItemNotFound, err)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "n"))
	assert.Equal(t, cache.ErrCacheItemNotFound, s.Delete(ctx, "n"))

	_, err = s.Read(ctx, "n")
	assert.Equal(t, cache.ErrCacheItemNotFound, err)

	assert.Equal(t, 2, st.Int(cache.MetricWrite))
	assert.Equal(t, 2, st.Int(cache.MetricHit))
	assert.Equal(t, 1, st.Int(cache.MetricMiss))
}

func TestSQLStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s := newSQLiteStore(t, cache.SQLStoreConfig{Now: clk.Now, TimeToLive: time.Minute})

	require.NoError(t, s.Write(ctx, "old", 1))
	clk.Add(50 * time.Second)
	require.NoError(t, s.Write(ctx, "new", 2))
	clk.Add(20 * time.Second)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cnt, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	v, err := s.Read(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSQLStore_storageError(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, cache.SQLStoreConfig{})

	require.NoError(t, s.Close())

	var se *cache.StorageError

	_, err := s.Read(ctx, "key")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "read", se.Op)
	assert.False(t, errors.Is(err, cache.ErrCacheItemNotFound))

	err = s.Write(ctx, "key", 1)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)

	// Fetcher degrades to remote fetch.
	f := cache.NewFetcher(func(ctx context.Context, key string) (interface{}, error) {
		return "remote", nil
	}, cache.FetcherConfig{Storage: s})

	v, err := f.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "remote", v)
}

func TestSQLStore_fetcher(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, cache.SQLStoreConfig{})
	calls := 0

	f := cache.NewFetcher(func(ctx context.Context, key string) (interface{}, error) {
		calls++

		return []string{"North Atlantic Treaty Organization"}, nil
	}, cache.FetcherConfig{Storage: s})

	for i := 0; i < 3; i++ {
		v, err := f.Get(ctx, "NATO")
		require.NoError(t, err)
		assert.Equal(t, []string{"North Atlantic Treaty Organization"}, v)
	}

	assert.Equal(t, 1, calls)
}

func TestSQLStore_Init(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open(cache.DialectSQLite, filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	s := cache.NewSQLStore(db, cache.DialectSQLite, cache.SQLStoreConfig{Name: "shared"})

	// Table is missing before Init.
	var se *cache.StorageError

	_, err = s.Read(ctx, "BBC")
	require.True(t, errors.As(err, &se))

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx), "Init is idempotent")

	require.NoError(t, s.Write(ctx, "BBC", "British Broadcasting Corporation"))

	v, err := s.Read(ctx, "BBC")
	require.NoError(t, err)
	assert.Equal(t, "British Broadcasting Corporation", v)
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("FETCHCACHE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set FETCHCACHE_TEST_POSTGRES_DSN to run Postgres cache store integration tests")
	}

	clk := newClock()
	s, err := cache.NewPostgresStore(dsn, cache.SQLStoreConfig{Now: clk.Now, TimeToLive: 10 * time.Second})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Delete(context.Background(), "BBC")
		_ = s.Close()
	})

	testTimeToLive(t, s, clk)
}
