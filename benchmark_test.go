package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/dgraph-io/ristretto"
	pca "github.com/patrickmn/go-cache"
	cache "github.com/vearutop/fetchcache"
)

func Benchmark_Memory(b *testing.B) {
	c := cache.NewMemory()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		if i < 10000 {
			_ = c.Write(ctx, k, 123)
		}
		// nolint
		_, _ = c.Read(ctx, k)
	}
}

func Benchmark_ShardedMap(b *testing.B) {
	c := cache.NewShardedMap()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		if i < 10000 {
			_ = c.Write(ctx, k, 123)
		}
		// nolint
		_, _ = c.Read(ctx, k)
	}
}

func Benchmark_ShardedMap_concurrent(b *testing.B) {
	c := cache.NewShardedMap()
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		_ = c.Write(ctx, "oneone"+strconv.Itoa(i), 123)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			i++
			// nolint
			_, _ = c.Read(ctx, "oneone"+strconv.Itoa(i%10000))
		}
	})
}

func Benchmark_GoCache(b *testing.B) {
	c := cache.NewGoCache()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		if i < 10000 {
			_ = c.Write(ctx, k, 123)
		}
		// nolint
		_, _ = c.Read(ctx, k)
	}
}

func Benchmark_Fetcher_cached(b *testing.B) {
	f := cache.NewFetcher(func(ctx context.Context, key string) (interface{}, error) {
		return 123, nil
	}, cache.FetcherConfig{PerKey: true})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		_, _ = f.Get(ctx, k)
	}
}

func Benchmark_Fetcher_alwaysFetch(b *testing.B) {
	f := cache.NewFetcher(func(ctx context.Context, key string) (interface{}, error) {
		return 123, nil
	}, cache.FetcherConfig{Storage: cache.NoOp{}})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		// nolint
		_, _ = f.Get(ctx, "oneone"+strconv.Itoa(i))
	}
}

// Sample result:
// Benchmark_Memory-16                 	 6299344	       180 ns/op	      16 B/op	       1 allocs/op
// Benchmark_Patrickmn-4          	     5000000	       258 ns/op	      16 B/op	       1 allocs/op
func Benchmark_Patrickmn(b *testing.B) {
	c := pca.New(5*time.Minute, 10*time.Minute)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)

		if i < 10000 {
			c.Set(k, 123, time.Minute)
		}

		_, _ = c.Get(k)
	}
}

func Benchmark_Ristretto(b *testing.B) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		b.Fatal(err)
	}

	defer c.Close()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)

		if i < 10000 {
			c.SetWithTTL(k, 123, 1, time.Minute)
		}

		_, _ = c.Get(k)
	}
}
