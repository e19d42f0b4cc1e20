package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/vearutop/fetchcache/internal/config"
)

type options struct {
	configPath string
	ttl        time.Duration
	backend    string
	dsn        string
	baseURL    string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:          "acronym",
		Short:        "Look up meanings of acronyms with a local cache",
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "path to JSON or YAML config file")
	f.DurationVar(&o.ttl, "ttl", 10*time.Second, "cache time to live")
	f.StringVar(&o.backend, "backend", config.BackendMemory, "cache backend: memory, sharded, sqlite, postgres, gocache, bool64 or none")
	f.StringVar(&o.dsn, "dsn", "", "database DSN for sqlite or postgres backend")
	f.StringVar(&o.baseURL, "base-url", config.DefaultBaseURL, "Acromine dictionary URL")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, important, warn or error")
	f.StringVar(&o.logFormat, "log-format", "json", "log format: json or text")

	cmd.AddCommand(
		newLookupCmd(o),
		newServeCmd(o),
		newValidateCmd(),
		newVersionCmd(),
	)

	return cmd
}

// config loads file configuration and applies explicitly set flags on top.
func (o *options) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}

		cfg = *loaded
	}

	flags := cmd.Flags()

	if flags.Changed("ttl") {
		cfg.Cache.TimeToLive = config.Duration(o.ttl)
	}

	if flags.Changed("backend") {
		cfg.Cache.Backend = o.backend
	}

	if flags.Changed("dsn") {
		cfg.Cache.DSN = o.dsn
	}

	if flags.Changed("base-url") {
		cfg.Acromine.BaseURL = o.baseURL
	}

	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}

	return cfg, cfg.Validate()
}
