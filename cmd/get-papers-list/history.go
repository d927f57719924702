// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-fetcher/internal/output"
	"github.com/pdiddy/pubmed-fetcher/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List papers or runs recorded in the history database",
	Long: `History reads the SQLite database named by --history (or store.path)
and lists the papers earlier runs kept, most recently seen first.

Use --runs to list the runs themselves.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.String("query", "", "only papers found by runs whose query contains this text")
	f.Int("limit", store.DefaultLimit, "maximum number of rows")
	f.Bool("json", false, "print JSON instead of a table")
	f.Bool("runs", false, "list runs instead of papers")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("store.path")
	if path == "" {
		return errors.New("no history database configured (use --history or store.path)")
	}

	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	listRuns, _ := cmd.Flags().GetBool("runs")

	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if listRuns {
		runs, err := s.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if asJSON {
			return encodeJSON(out, runs)
		}
		fmt.Fprintf(out, "%-5s  %-20s  %10s  %6s  %s\n", "ID", "Started", "Candidates", "Papers", "Query")
		for _, r := range runs {
			fmt.Fprintf(out, "%-5d  %-20s  %10d  %6d  %s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Candidates, r.Papers, r.Query)
		}
		return nil
	}

	papers, err := s.List(cmd.Context(), store.ListOptions{Query: query, Limit: limit})
	if err != nil {
		return err
	}
	if asJSON {
		return output.WriteJSON(out, papers)
	}
	output.WriteTable(out, papers)
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
