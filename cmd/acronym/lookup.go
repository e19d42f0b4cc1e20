package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/acromine"
	"golang.org/x/sync/errgroup"
)

func newLookupCmd(o *options) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "lookup ACRONYM...",
		Short: "Print meanings of acronyms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}

			// Distinct acronyms are resolved concurrently.
			cfg.PerKey = true

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() {
				if err := a.Close(); err != nil {
					a.log.Error(cmd.Context(), "failed to close cache", "error", err)
				}
			}()

			ctx := cmd.Context()
			if noCache {
				ctx = cache.WithSkipRead(ctx)
			}

			return lookup(ctx, a.fetcher, cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip cache read, result is still stored")

	return cmd
}

// lookup resolves acronyms and prints one line per argument in argument order.
func lookup(ctx context.Context, f *cache.Fetcher, w io.Writer, args []string) error {
	lines := make([]string, len(args))
	g, ctx := errgroup.WithContext(ctx)

	for i, arg := range args {
		i, key := i, acromine.NormalizeKey(arg)

		g.Go(func() error {
			v, err := f.Get(ctx, key)

			switch {
			case err == nil:
				lines[i] = key + ": " + describe(v)
			case errors.Is(err, cache.ErrNotFound),
				errors.Is(err, cache.ErrFetchFailed),
				errors.Is(err, cache.ErrAlreadyInProgress),
				errors.Is(err, cache.ErrEmptyKey):
				lines[i] = err.Error()
			default:
				return err
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}

	return nil
}

func describe(v interface{}) string {
	if r, ok := v.(acromine.Result); ok {
		return strings.Join(r.LongForms(), "; ")
	}

	return fmt.Sprintf("%v", v)
}
