// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output renders papers as a console table, CSV, JSON, or YAML and
// reads back a previous CSV to resume an interrupted run.
package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable   Format = "table"
	FormatDetails Format = "details"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatDetails, FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, details, csv, json, or yaml)", s)
	}
}

// Write renders papers to w in format.
func Write(w io.Writer, format Format, papers []types.Paper) error {
	switch format {
	case FormatTable:
		WriteTable(w, papers)
		return nil
	case FormatDetails:
		WriteDetails(w, papers)
		return nil
	case FormatCSV:
		return WriteCSV(w, papers, true)
	case FormatJSON:
		return WriteJSON(w, papers)
	case FormatYAML:
		return WriteYAML(w, papers)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteTable writes a fixed-width console table. Long titles and
// affiliation lists are truncated.
func WriteTable(w io.Writer, papers []types.Paper) {
	fmt.Fprintf(w, "%-10s  %-50s  %-10s  %-30s  %-30s  %s\n",
		"PMID", "Title", "Date", "Non-academic Author(s)", "Company Affiliation(s)", "Email")
	fmt.Fprintln(w, strings.Repeat("-", 150))

	for _, p := range papers {
		row := p.Row()
		fmt.Fprintf(w, "%-10s  %-50s  %-10s  %-30s  %-30s  %s\n",
			row[0], truncate(row[1], 50), row[2], truncate(row[3], 30), truncate(row[4], 30), row[5])
	}
	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

// WriteDetails writes one labelled block per paper.
func WriteDetails(w io.Writer, papers []types.Paper) {
	for _, p := range papers {
		email := p.CorrespondingEmail
		if email == "" {
			email = "N/A"
		}
		fmt.Fprintln(w, "\nPaper Details:")
		fmt.Fprintf(w, "PubMed ID: %s\n", p.ID)
		fmt.Fprintf(w, "Title: %s\n", p.Title)
		fmt.Fprintf(w, "Publication Date: %s\n", p.Date())
		fmt.Fprintf(w, "Non-academic Authors: %s\n", strings.Join(p.NonAcademicAuthors, ", "))
		fmt.Fprintf(w, "Company Affiliations: %s\n", strings.Join(p.CompanyAffiliations, ", "))
		fmt.Fprintf(w, "Corresponding Author Email: %s\n", email)
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// WriteCSV writes one row per paper. The header row is written when header
// is true; appending to an existing file passes false.
func WriteCSV(w io.Writer, papers []types.Paper, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(types.Columns); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}
	for _, p := range papers {
		if err := cw.Write(p.Row()); err != nil {
			return fmt.Errorf("writing CSV row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// paperView is the JSON and YAML shape of a Paper, with the date rendered
// as YYYY-MM-DD.
type paperView struct {
	ID                  string         `json:"pubmed_id" yaml:"pubmed_id"`
	Title               string         `json:"title" yaml:"title"`
	PublicationDate     string         `json:"publication_date" yaml:"publication_date"`
	NonAcademicAuthors  []string       `json:"non_academic_authors" yaml:"non_academic_authors"`
	CompanyAffiliations []string       `json:"company_affiliations" yaml:"company_affiliations"`
	CorrespondingEmail  string         `json:"corresponding_author_email" yaml:"corresponding_author_email"`
	Authors             []types.Author `json:"authors" yaml:"authors"`
}

func views(papers []types.Paper) []paperView {
	out := make([]paperView, len(papers))
	for i, p := range papers {
		out[i] = paperView{
			ID:                  p.ID,
			Title:               p.Title,
			PublicationDate:     p.Date(),
			NonAcademicAuthors:  p.NonAcademicAuthors,
			CompanyAffiliations: p.CompanyAffiliations,
			CorrespondingEmail:  p.CorrespondingEmail,
			Authors:             p.Authors,
		}
	}
	return out
}

// WriteJSON writes papers as an indented JSON array.
func WriteJSON(w io.Writer, papers []types.Paper) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views(papers))
}

// WriteYAML writes papers as a YAML sequence.
func WriteYAML(w io.Writer, papers []types.Paper) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views(papers)); err != nil {
		enc.Close()
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// WriteFile writes papers to path. With appendCSV set and an existing,
// non-empty CSV at path, rows are appended without a header. Otherwise the
// file is replaced through a temporary file.
func WriteFile(path string, format Format, papers []types.Paper, appendCSV bool) error {
	if appendCSV && format == FormatCSV {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			if err := WriteCSV(f, papers, false); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".get-papers-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := Write(tmp, format, papers)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadSeenIDs returns the PMIDs in the first column of a CSV written by
// WriteCSV. A missing file yields an empty set.
func ReadSeenIDs(path string) (map[string]bool, error) {
	seen := make(map[string]bool)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		id := strings.TrimSpace(rec[0])
		if i == 0 && id == types.Columns[0] {
			continue
		}
		if id != "" {
			seen[id] = true
		}
	}
	return seen, nil
}
