// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a local SQLite history of fetch runs and the papers
// each run found, so later runs can skip known PMIDs and past results can be
// listed without querying PubMed again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

// DefaultLimit bounds List and Runs when no limit is given.
const DefaultLimit = 50

// Store wraps the history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded fetch.
type Run struct {
	ID         int64     `json:"id"`
	Query      string    `json:"query"`
	StartedAt  time.Time `json:"started_at"`
	Candidates int       `json:"candidates"`
	Papers     int       `json:"papers"`
}

// ListOptions filters List.
type ListOptions struct {
	// Query keeps papers found by runs whose query contains this text.
	Query string

	// Limit caps the number of papers returned. Zero selects DefaultLimit.
	Limit int
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			started_at TEXT NOT NULL,
			candidates INTEGER NOT NULL DEFAULT 0,
			papers INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			pmid TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			publication_date TEXT,
			authors TEXT,
			non_academic_authors TEXT,
			company_affiliations TEXT,
			email TEXT,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_papers (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			pmid TEXT NOT NULL REFERENCES papers(pmid),
			PRIMARY KEY (run_id, pmid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_papers_pmid ON run_papers(pmid)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_last_seen ON papers(last_seen)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a run and upserts its papers in one transaction. It
// returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, query string, candidates int, papers []types.Paper) (int64, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (query, started_at, candidates, papers) VALUES (?, ?, ?, ?)`,
		query, now, candidates, len(papers),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (pmid, title, publication_date, authors, non_academic_authors,
			company_affiliations, email, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			title=excluded.title, publication_date=excluded.publication_date,
			authors=excluded.authors, non_academic_authors=excluded.non_academic_authors,
			company_affiliations=excluded.company_affiliations, email=excluded.email,
			last_seen=excluded.last_seen`)
	if err != nil {
		return 0, fmt.Errorf("preparing paper upsert: %w", err)
	}
	defer upsert.Close()

	link, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO run_papers (run_id, pmid) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing run link: %w", err)
	}
	defer link.Close()

	for _, p := range papers {
		authorsJSON, _ := json.Marshal(p.Authors)
		namesJSON, _ := json.Marshal(p.NonAcademicAuthors)
		companiesJSON, _ := json.Marshal(p.CompanyAffiliations)
		if _, err := upsert.ExecContext(ctx,
			p.ID, p.Title, p.Date(), string(authorsJSON), string(namesJSON),
			string(companiesJSON), p.CorrespondingEmail, now, now,
		); err != nil {
			return 0, fmt.Errorf("upserting paper %s: %w", p.ID, err)
		}
		if _, err := link.ExecContext(ctx, runID, p.ID); err != nil {
			return 0, fmt.Errorf("linking paper %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// SeenIDs returns every PMID recorded by any run.
func (s *Store) SeenIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pmid FROM papers`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning pmid: %w", err)
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// List returns stored papers, most recently seen first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Paper, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := `SELECT p.pmid, p.title, p.publication_date, p.authors, p.non_academic_authors,
			p.company_affiliations, p.email
		  FROM papers p`
	var args []any
	if opts.Query != "" {
		q += ` WHERE p.pmid IN (
			SELECT rp.pmid FROM run_papers rp JOIN runs r ON r.id = rp.run_id
			WHERE r.query LIKE ? ESCAPE '\')`
		args = append(args, "%"+escapeLike(opts.Query)+"%")
	}
	q += ` ORDER BY p.last_seen DESC, p.pmid LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var (
			p                                      types.Paper
			date, authors, names, companies, email sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Title, &date, &authors, &names, &companies, &email); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if date.Valid && date.String != "" {
			if t, err := time.Parse(types.DateLayout, date.String); err == nil {
				p.PublicationDate = t
			}
		}
		unmarshalJSON(authors, &p.Authors)
		unmarshalJSON(names, &p.NonAcademicAuthors)
		unmarshalJSON(companies, &p.CompanyAffiliations)
		p.CorrespondingEmail = email.String
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// Runs returns recorded runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, started_at, candidates, papers FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &r.Query, &started, &r.Candidates, &r.Papers); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func unmarshalJSON(col sql.NullString, v any) {
	if !col.Valid || col.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(col.String), v)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
