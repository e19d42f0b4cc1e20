package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vearutop/fetchcache/internal/config"
	"github.com/vearutop/fetchcache/internal/version"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "config is valid: backend=%s, ttl=%s, base_url=%s\n",
				cfg.Cache.Backend, time.Duration(cfg.Cache.TimeToLive), cfg.Acromine.BaseURL)

			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}
