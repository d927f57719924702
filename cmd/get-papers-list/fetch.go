// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-fetcher/internal/cache"
	"github.com/pdiddy/pubmed-fetcher/internal/detail"
	"github.com/pdiddy/pubmed-fetcher/internal/httputil"
	"github.com/pdiddy/pubmed-fetcher/internal/output"
	"github.com/pdiddy/pubmed-fetcher/internal/pipeline"
	"github.com/pdiddy/pubmed-fetcher/internal/search"
	"github.com/pdiddy/pubmed-fetcher/internal/store"
	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

const noPapersMessage = "No papers found matching the criteria."

// errNoPapers is returned when a run keeps no papers; main maps it to the
// plain message and exit status 1.
var errNoPapers = errors.New("no papers found")

func init() {
	f := rootCmd.Flags()
	f.StringP("file", "f", "", "write results to this file instead of the console")
	f.IntP("max-results", "m", search.DefaultMaxResults, fmt.Sprintf("maximum number of papers to return (1-%d)", search.MaxResultsLimit))
	f.String("format", "", "output format: table, details, csv, json, yaml (default: table on the console, from the file extension otherwise)")
	f.Bool("resume", false, "skip PMIDs already in --file (or the history database) and append new rows")
	f.Bool("no-cache", false, "bypass the record cache for this run")
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	formatFlag, _ := cmd.Flags().GetString("format")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	resume, _ := cmd.Flags().GetBool("resume")
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Disabled = true
	}

	if maxResults < 1 || maxResults > search.MaxResultsLimit {
		return fmt.Errorf("--max-results must be between 1 and %d, got %d", search.MaxResultsLimit, maxResults)
	}
	format, err := resolveFormat(formatFlag, file)
	if err != nil {
		return err
	}
	if resume && file != "" && format != output.FormatCSV {
		return fmt.Errorf("--resume appends to CSV files only, got format %s", format)
	}

	seen := make(map[string]bool)
	if resume && file != "" {
		seen, err = output.ReadSeenIDs(file)
		if err != nil {
			return err
		}
	}

	var history *store.Store
	if cfg.Store.Path != "" {
		history, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer history.Close()

		if resume {
			ids, err := history.SeenIDs(cmd.Context())
			if err != nil {
				return err
			}
			for id := range ids {
				seen[id] = true
			}
		}
	}
	if resume {
		logger.Info().Int("seen", len(seen)).Msg("resuming")
	}

	q := search.Query{Term: args[0], MaxResults: maxResults}
	result, err := newPipeline(cfg, logger).Run(cmd.Context(), q, seen)
	if err != nil {
		return err
	}
	logger.Debug().
		Int("candidates", result.Candidates).
		Int("processed", result.Processed()).
		Bool("cancelled", result.Cancelled).
		Msg("run complete")

	if history != nil {
		// The run is recorded even when interrupted.
		ctx := context.WithoutCancel(cmd.Context())
		if _, err := history.SaveRun(ctx, q.Term, result.Candidates, result.Papers); err != nil {
			logger.Warn().Err(err).Msg("could not record run history")
		}
	}

	if len(result.Papers) == 0 {
		if result.Cancelled {
			return context.Canceled
		}
		return errNoPapers
	}

	if file != "" {
		if err := output.WriteFile(file, format, result.Papers, resume); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", file)
	} else if err := output.Write(cmd.OutOrStdout(), format, result.Papers); err != nil {
		return err
	}

	if result.Cancelled {
		return fmt.Errorf("interrupted after %d of %d identifiers: %w",
			result.Processed(), result.Candidates, context.Canceled)
	}
	return nil
}

// resolveFormat picks the output format. An explicit flag wins; a file
// falls back to its extension, then CSV; the console defaults to a table.
func resolveFormat(flag, file string) (output.Format, error) {
	if flag != "" {
		return output.ParseFormat(flag)
	}
	if file == "" {
		return output.FormatTable, nil
	}
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	if f, err := output.ParseFormat(ext); err == nil && f != output.FormatTable && f != output.FormatDetails {
		return f, nil
	}
	return output.FormatCSV, nil
}

// newPipeline builds the search and detail stages around one shared client,
// so a single rate limiter paces every request of the run.
func newPipeline(cfg types.Config, logger zerolog.Logger) *pipeline.Pipeline {
	params := url.Values{}
	if cfg.NCBI.Tool != "" {
		params.Set("tool", cfg.NCBI.Tool)
	}
	if cfg.NCBI.Email != "" {
		params.Set("email", cfg.NCBI.Email)
	}
	if cfg.NCBI.APIKey != "" {
		params.Set("api_key", cfg.NCBI.APIKey)
	}

	delay := httputil.RequestDelay(cfg.NCBI.RequestDelay, cfg.NCBI.APIKey)
	client := httputil.NewClient(
		&http.Client{Timeout: cfg.HTTP.Timeout},
		httputil.NewRateLimiter(delay),
		httputil.Options{
			MaxAttempts: cfg.HTTP.MaxAttempts,
			Backoff:     cfg.HTTP.Backoff,
			UserAgent:   cfg.HTTP.UserAgent,
			Params:      params,
			Logger:      logger,
		},
	)
	logger.Debug().Dur("request_delay", delay).Str("base_url", cfg.NCBI.BaseURL).Msg("client ready")

	var records detail.Cache
	if !cfg.Cache.Disabled {
		records = cache.New(cfg.Cache.Dir, cfg.Cache.TTL, logger)
	}

	return pipeline.New(
		search.New(client, cfg.NCBI.BaseURL, logger),
		detail.New(client, records, cfg.NCBI.BaseURL, logger),
		logger,
	)
}
