// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-fetcher/internal/cache"
	"github.com/pdiddy/pubmed-fetcher/internal/logging"
	"github.com/pdiddy/pubmed-fetcher/internal/search"
	"github.com/pdiddy/pubmed-fetcher/internal/secrets"
	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

// setDefaults registers every config key so environment overrides are seen
// by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.user_agent", "get-papers-list/"+version)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff", time.Second)

	v.SetDefault("ncbi.base_url", search.DefaultBaseURL)
	v.SetDefault("ncbi.api_key", "")
	v.SetDefault("ncbi.email", "")
	v.SetDefault("ncbi.tool", "get-papers-list")
	v.SetDefault("ncbi.request_delay", time.Duration(0))

	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.disabled", false)

	v.SetDefault("store.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// loadConfig decodes v into a Config and fills NCBI credentials from
// .secrets/ where config and environment left them empty.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.HTTP.Timeout <= 0 {
		return cfg, fmt.Errorf("http.timeout must be positive, got %s", cfg.HTTP.Timeout)
	}
	if cfg.NCBI.RequestDelay < 0 {
		return cfg, fmt.Errorf("ncbi.request_delay must not be negative, got %s", cfg.NCBI.RequestDelay)
	}
	secrets.Apply(&cfg.NCBI, loadedSecrets)
	return cfg, nil
}

// newLogger builds the logger for cmd, honouring --debug over log.level.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	cfg := types.LogConfig{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Level = "debug"
	}
	return logging.New(cfg, cmd.ErrOrStderr())
}
