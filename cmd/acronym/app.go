package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	bcache "github.com/bool64/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/acromine"
	"github.com/vearutop/fetchcache/internal/config"
	"github.com/vearutop/fetchcache/internal/logging"
	"github.com/vearutop/fetchcache/internal/promstats"
)

const cacheName = "acronyms"

// app wires dictionary client, cache storage and fetcher.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	registry *prometheus.Registry
	stats    *promstats.Tracker
	storage  cache.ReadWriter
	sql      *cache.SQLStore
	fetcher  *cache.Fetcher
	inv      *cache.Invalidator
	closers  []func() error
}

func newApp(cfg config.Config, logOutput io.Writer) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      logging.New(logOutput, cfg.Log.Level, cfg.Log.Format),
		registry: prometheus.NewRegistry(),
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.stats = promstats.New(a.registry, "")
	a.inv = &cache.Invalidator{
		SkipInterval: time.Duration(cfg.Server.InvalidateInterval),
		Logger:       a.log,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}

	client := acromine.NewClient(cfg.Acromine.BaseURL, time.Duration(cfg.Acromine.Timeout), a.log)

	a.fetcher = cache.NewFetcher(client.Fetch, cache.FetcherConfig{
		Name:    cacheName,
		Storage: a.storage,
		PerKey:  cfg.PerKey,
		Logger:  a.log,
		Stats:   a.stats,
	})

	return a, nil
}

func (a *app) initStorage() error {
	memCfg := cache.MemoryConfig{
		Name:                     cacheName,
		TimeToLive:               time.Duration(a.cfg.Cache.TimeToLive),
		MaxBytes:                 a.cfg.Cache.MaxBytes,
		DeleteExpiredJobInterval: time.Duration(a.cfg.Cache.CleanupInterval),
		ItemsCountReportInterval: time.Minute,
		Logger:                   a.log,
		Stats:                    a.stats,
	}

	switch a.cfg.Cache.Backend {
	case config.BackendMemory:
		m := cache.NewMemory(memCfg)
		a.storage = m
		a.inv.Callbacks = append(a.inv.Callbacks, m.ExpireAll)
		a.closers = append(a.closers, closeFunc(m.Close))
	case config.BackendSharded:
		m := cache.NewShardedMap(memCfg)
		a.storage = m
		a.inv.Callbacks = append(a.inv.Callbacks, m.ExpireAll)
		a.closers = append(a.closers, closeFunc(m.Close))
	case config.BackendGoCache:
		g := cache.NewGoCache(memCfg)
		a.storage = g
		a.inv.Callbacks = append(a.inv.Callbacks, g.ExpireAll)
	case config.BackendBool64:
		ttl := memCfg.TimeToLive
		b := cache.NewBool64(bcache.NewShardedMap(func(cfg *bcache.Config) {
			cfg.Name = cacheName
			cfg.TimeToLive = ttl
		}), memCfg)
		a.storage = b
		a.inv.Callbacks = append(a.inv.Callbacks, b.ExpireAll)
	case config.BackendSQLite, config.BackendPostgres:
		sqlCfg := cache.SQLStoreConfig{
			Name:       cacheName,
			TimeToLive: time.Duration(a.cfg.Cache.TimeToLive),
			Logger:     a.log,
			Stats:      a.stats,
		}

		var (
			s   *cache.SQLStore
			err error
		)

		if a.cfg.Cache.Backend == config.BackendSQLite {
			s, err = cache.NewSQLiteStore(a.cfg.Cache.DSN, sqlCfg)
		} else {
			s, err = cache.NewPostgresStore(a.cfg.Cache.DSN, sqlCfg)
		}

		if err != nil {
			return fmt.Errorf("init %s cache: %w", a.cfg.Cache.Backend, err)
		}

		a.storage = s
		a.sql = s
		a.inv.Callbacks = append(a.inv.Callbacks, s.ExpireAll)
		a.closers = append(a.closers, s.Close)
	case config.BackendNone:
		a.storage = cache.NoOp{}
	default:
		return fmt.Errorf("unknown cache backend: %q", a.cfg.Cache.Backend)
	}

	return nil
}

func closeFunc(f func()) func() error {
	return func() error {
		f()

		return nil
	}
}

// Close waits for pending fetches and releases storage.
func (a *app) Close() error {
	a.fetcher.Wait()

	var errs []error

	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
