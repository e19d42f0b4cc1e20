package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// FetchFunc loads value of a key from remote source.
//
// Returning an error that wraps ErrNotFound, or an empty value, reports absence of results.
type FetchFunc func(ctx context.Context, key string) (interface{}, error)

// Result is an outcome of a fetch.
type Result struct {
	Key    string
	Value  interface{}
	Cached bool
	Err    error
}

// Receiver accepts fetch results delivered by Fetcher.Request.
type Receiver interface {
	Receive(ctx context.Context, res Result)
}

// ReceiverFunc implements Receiver with a function.
type ReceiverFunc func(ctx context.Context, res Result)

// Receive calls function.
func (f ReceiverFunc) Receive(ctx context.Context, res Result) {
	f(ctx, res)
}

// FetcherConfig is optional configuration for NewFetcher.
type FetcherConfig struct {
	// Name is added to logs and stats.
	Name string

	// Storage is a cache instance, in-memory created by default.
	Storage ReadWriter

	// StorageConfig is a configuration for in-memory cache instance if Storage is not provided.
	StorageConfig MemoryConfig

	// Guard controls admission of concurrent fetches, overrides PerKey.
	Guard Guard

	// PerKey allows concurrent fetches of distinct keys.
	// By default only one fetch per Fetcher is in flight.
	PerKey bool

	// FetchTimeout limits duration of remote fetch, no limit by default.
	FetchTimeout time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// Fetcher resolves keys from cache or remote source in background, rejecting concurrent requests.
//
// Please use NewFetcher to create instance.
type Fetcher struct {
	storage ReadWriter
	guard   Guard
	fetch   FetchFunc
	config  FetcherConfig
	log     ctxd.Logger
	stat    stats.Tracker

	mu       sync.Mutex
	receiver Receiver

	wg sync.WaitGroup
}

// NewFetcher creates a Fetcher instance.
func NewFetcher(fetch FetchFunc, config FetcherConfig) *Fetcher {
	f := &Fetcher{
		fetch:  fetch,
		config: config,
	}

	f.log = config.Logger
	if f.log == nil {
		f.log = ctxd.NoOpLogger{}
	}

	f.stat = config.Stats
	if f.stat == nil {
		f.stat = stats.NoOp{}
	}

	f.storage = config.Storage
	if f.storage == nil {
		config.StorageConfig.Name = config.Name
		config.StorageConfig.Logger = config.Logger
		config.StorageConfig.Stats = config.Stats
		f.storage = NewMemory(config.StorageConfig)
	}

	f.guard = config.Guard

	switch {
	case f.guard != nil:
	case config.PerKey:
		f.guard = NewKeyLatch()
	default:
		f.guard = &Latch{}
	}

	return f
}

// Storage returns cache instance.
func (f *Fetcher) Storage() ReadWriter {
	return f.storage
}

// Guard returns admission guard.
func (f *Fetcher) Guard() Guard {
	return f.guard
}

// Attach sets receiver for results of Request, previous receiver is replaced.
func (f *Fetcher) Attach(r Receiver) {
	f.mu.Lock()
	f.receiver = r
	f.mu.Unlock()
}

// Detach removes receiver, results completed while detached are dropped.
func (f *Fetcher) Detach() {
	f.Attach(nil)
}

// Fetch starts resolving of key and returns a channel to receive single result.
//
// If another fetch is in flight, ErrAlreadyInProgress is returned immediately.
// Guard is released before result is sent.
func (f *Fetcher) Fetch(ctx context.Context, key string) (<-chan Result, error) {
	ch := make(chan Result, 1)

	err := f.start(ctx, key, func(_ context.Context, res Result) {
		ch <- res
		close(ch)
	})
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// Request starts resolving of key and delivers result to the Receiver attached at completion time.
func (f *Fetcher) Request(ctx context.Context, key string) error {
	return f.start(ctx, key, func(ctx context.Context, res Result) {
		f.mu.Lock()
		r := f.receiver
		f.mu.Unlock()

		if r == nil {
			f.log.Info(ctx, "no receiver attached, dropping result",
				"name", f.config.Name, "key", res.Key, "error", res.Err)
			f.stat.Add(ctx, MetricDropped, 1, "name", f.config.Name)

			return
		}

		r.Receive(ctx, res)
	})
}

// Get resolves key and waits for result.
func (f *Fetcher) Get(ctx context.Context, key string) (interface{}, error) {
	ch, err := f.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until all started fetches are complete.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

func (f *Fetcher) start(ctx context.Context, key string, deliver func(ctx context.Context, res Result)) error {
	if key == "" {
		return ErrEmptyKey
	}

	if !f.guard.TryAcquire(key) {
		pending, _ := f.guard.Pending(key)

		f.log.Debug(ctx, "fetch rejected, call already in progress",
			"name", f.config.Name, "key", key, "pending", pending)
		f.stat.Add(ctx, MetricRejected, 1, "name", f.config.Name)

		return ctxd.WrapError(ctx, ErrAlreadyInProgress, "fetch rejected", "key", key, "pending", pending)
	}

	f.wg.Add(1)

	go func() {
		var res Result

		defer f.wg.Done()
		defer func() { deliver(ctx, res) }()
		defer f.guard.Release(key)

		res = f.resolve(ctx, key)
	}()

	return nil
}

func (f *Fetcher) resolve(ctx context.Context, key string) Result {
	res := Result{Key: key}

	value, err := f.storage.Read(ctx, key)
	if err == nil {
		res.Value = value
		res.Cached = true

		return res
	}

	if !errors.Is(err, ErrCacheItemNotFound) {
		f.log.Warn(ctx, "failed to read cache",
			"error", err, "name", f.config.Name, "key", key)
		f.stat.Add(ctx, MetricStorageFailed, 1, "name", f.config.Name)
	}

	value, err = f.doFetch(ctx, key)
	if err != nil {
		res.Err = err

		return res
	}

	// Fetched value is stored even if caller has gone.
	if err := f.storage.Write(detachedContext{ctx}, key, value); err != nil {
		f.log.Warn(ctx, "failed to write cache",
			"error", err, "name", f.config.Name, "key", key)
		f.stat.Add(ctx, MetricStorageFailed, 1, "name", f.config.Name)
	}

	res.Value = value

	return res
}

func (f *Fetcher) doFetch(ctx context.Context, key string) (interface{}, error) {
	f.log.Debug(ctx, "fetching value", "name", f.config.Name, "key", key)
	f.stat.Add(ctx, MetricFetch, 1, "name", f.config.Name)

	value, err := f.callFetch(ctx, key)
	if err == nil && isEmpty(value) {
		err = ErrNotFound
	}

	if err == nil {
		return value, nil
	}

	fe := &FetchError{Key: key, Kind: ErrFetchFailed, Cause: err}

	if errors.Is(err, ErrNotFound) {
		fe.Kind = ErrNotFound

		f.log.Debug(ctx, "no results found", "name", f.config.Name, "key", key)
		f.stat.Add(ctx, MetricNotFound, 1, "name", f.config.Name)
	} else {
		f.log.Warn(ctx, "failed to fetch value",
			"error", err, "name", f.config.Name, "key", key)
		f.stat.Add(ctx, MetricFailed, 1, "name", f.config.Name)
	}

	return nil, fe
}

func (f *Fetcher) callFetch(ctx context.Context, key string) (value interface{}, err error) {
	if f.config.FetchTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.config.FetchTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()

	return f.fetch(ctx, key)
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
