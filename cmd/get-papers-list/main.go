// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the get-papers-list CLI.
// The root command runs a fetch; cache, history, and version are
// subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-fetcher/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds NCBI credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd fetches papers for a PubMed query.
var rootCmd = &cobra.Command{
	Use:   "get-papers-list QUERY",
	Short: "Fetch PubMed papers with pharmaceutical or biotech authors",
	Long: `get-papers-list searches PubMed for QUERY, fetches each matching record,
and keeps the papers with at least one author affiliated with a
pharmaceutical, biotech, or other commercial organization.

QUERY accepts the full PubMed search syntax, for example
  get-papers-list "cancer immunotherapy[Title] AND 2023[PDAT]" -f out.csv

Results print to the console unless --file is given. Detail records are
cached on disk for 24 hours and requests are paced to NCBI's limits (3
per second, 10 with an API key in .secrets/ncbi-api-key).`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir, newLogger(cmd))
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
	RunE: runFetch,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./get-papers-list.yaml or ~/.config/get-papers-list/get-papers-list.yaml)")
	pf.BoolP("debug", "d", false, "print debug information during execution")
	pf.String("cache-dir", "", "record cache directory (default: user cache dir)")
	pf.String("history", "", "SQLite database recording each run's papers")

	viper.BindPFlag("cache.dir", pf.Lookup("cache-dir"))
	viper.BindPFlag("store.path", pf.Lookup("history"))
}

func initConfig() {
	v := viper.GetViper()
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("get-papers-list")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "get-papers-list"))
		}
	}

	v.SetEnvPrefix("GET_PAPERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if errors.Is(err, errNoPapers) {
		fmt.Fprintln(os.Stderr, noPapersMessage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
