package promstats_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/promstats"
)

func TestTracker(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	tr := promstats.New(reg, "fetchcache")

	tr.Add(ctx, cache.MetricHit, 1, "name", "acronyms")
	tr.Add(ctx, cache.MetricHit, 2, "name", "acronyms")
	tr.Add(ctx, cache.MetricHit, 1, "name", "other")
	tr.Add(ctx, cache.MetricHit, -1, "name", "acronyms")
	tr.Add(ctx, cache.MetricHit, 1, "unexpected", "label")
	tr.Set(ctx, cache.MetricItems, 42, "name", "acronyms")
	tr.Set(ctx, cache.MetricItems, 40, "name", "acronyms")

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP fetchcache_cache_hit cache_hit
# TYPE fetchcache_cache_hit counter
fetchcache_cache_hit{name="acronyms"} 3
fetchcache_cache_hit{name="other"} 1
# HELP fetchcache_cache_items cache_items
# TYPE fetchcache_cache_items gauge
fetchcache_cache_items{name="acronyms"} 40
`), "fetchcache_cache_hit", "fetchcache_cache_items")
	require.NoError(t, err)
}

func TestTracker_fetcher(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	f := cache.NewFetcher(func(ctx context.Context, key string) (interface{}, error) {
		return "Light Amplification by Stimulated Emission of Radiation", nil
	}, cache.FetcherConfig{Name: "acronyms", Stats: promstats.New(reg, "")})

	for i := 0; i < 3; i++ {
		_, err := f.Get(ctx, "LASER")
		require.NoError(t, err)
	}

	n, err := testutil.GatherAndCount(reg, "fetch_total", "cache_hit", "cache_miss", "cache_write")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP cache_hit cache_hit
# TYPE cache_hit counter
cache_hit{name="acronyms"} 2
`), "cache_hit")
	require.NoError(t, err)
}

func TestTracker_sharedRegistry(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	promstats.New(reg, "app").Add(ctx, "requests", 1)
	promstats.New(reg, "app").Add(ctx, "requests", 1)

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP app_requests requests
# TYPE app_requests counter
app_requests 2
`), "app_requests")
	require.NoError(t, err)
}
