package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/version"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve acronym lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() {
				if err := a.Close(); err != nil {
					a.log.Error(context.Background(), "failed to close cache", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}

			return a.serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

// serve runs HTTP server and periodic SQL cleanup until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler: newRouter(&handlers{
			fetcher:  a.fetcher,
			inv:      a.inv,
			gatherer: a.registry,
			log:      a.log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Important(ctx, "acronym service listening",
			"addr", ln.Addr().String(), "version", version.String(), "backend", a.cfg.Cache.Backend)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		a.log.Important(shutdownCtx, "shutting down")

		return srv.Shutdown(shutdownCtx)
	})

	if interval := time.Duration(a.cfg.Cache.CleanupInterval); a.sql != nil && interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := a.sql.DeleteExpired(ctx)
					if err != nil {
						a.log.Warn(ctx, "failed to delete expired cache entries", "error", err)

						continue
					}

					a.stats.Add(ctx, cache.MetricEvict, float64(n), "name", cacheName)
				}
			}
		})
	}

	return g.Wait()
}
