// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one fetch: search once, then fetch, extract, and
// assemble each identifier in order until enough papers qualify.
//
// Identifiers are processed strictly one after another so that a single
// rate limiter governs every outbound request.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-fetcher/internal/assemble"
	"github.com/pdiddy/pubmed-fetcher/internal/document"
	"github.com/pdiddy/pubmed-fetcher/internal/extract"
	"github.com/pdiddy/pubmed-fetcher/internal/search"
	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

// Searcher resolves a query to identifiers.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]string, error)
}

// Fetcher returns the detail document for one identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*document.Node, bool)
}

// Result holds the outcome of a run.
type Result struct {
	Papers []types.Paper

	// Candidates is the number of identifiers the search returned.
	Candidates int

	// Skipped counts identifiers already present in the seen set.
	Skipped int

	// Failed counts identifiers whose fetch or extraction failed.
	Failed int

	// Filtered counts records without an industry affiliation.
	Filtered int

	// Cancelled is set when the context ended before the identifiers ran out.
	Cancelled bool
}

// Processed returns the number of identifiers that were looked at.
func (r Result) Processed() int {
	return len(r.Papers) + r.Skipped + r.Failed + r.Filtered
}

// Pipeline wires the stages of a run.
type Pipeline struct {
	searcher Searcher
	fetcher  Fetcher
	logger   zerolog.Logger
}

// New returns a Pipeline.
func New(searcher Searcher, fetcher Fetcher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		searcher: searcher,
		fetcher:  fetcher,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes q. Identifiers in seen are skipped. The run stops once
// q.Limit() papers qualify or ctx is done; cancellation is checked between
// identifiers and yields the partial result with a nil error.
//
// A transport failure during the search is the only error returned. A
// search response without an identifier list is logged and treated as an
// empty result.
func (p *Pipeline) Run(ctx context.Context, q search.Query, seen map[string]bool) (Result, error) {
	var result Result

	ids, err := p.searcher.Search(ctx, q)
	if err != nil {
		var se *search.SearchError
		if errors.As(err, &se) {
			p.logger.Warn().Err(err).Msg("search returned no usable identifier list")
			return result, nil
		}
		return result, fmt.Errorf("searching PubMed: %w", err)
	}
	result.Candidates = len(ids)
	p.logger.Info().Str("term", q.Term).Int("candidates", len(ids)).Msg("search complete")

	limit := q.Limit()
	for _, id := range ids {
		if len(result.Papers) >= limit {
			break
		}
		if ctx.Err() != nil {
			result.Cancelled = true
			p.logger.Info().Int("papers", len(result.Papers)).Msg("run cancelled")
			break
		}
		if seen[id] {
			result.Skipped++
			continue
		}

		paper, outcome := p.process(ctx, id)
		switch outcome {
		case outcomeFailed:
			result.Failed++
		case outcomeFiltered:
			result.Filtered++
		case outcomeKept:
			result.Papers = append(result.Papers, *paper)
		}
	}

	p.logger.Info().
		Int("papers", len(result.Papers)).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("filtered", result.Filtered).
		Msg("run summary")
	return result, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeFiltered
	outcomeKept
)

func (p *Pipeline) process(ctx context.Context, id string) (*types.Paper, outcome) {
	log := p.logger.With().Str("pmid", id).Logger()

	doc, ok := p.fetcher.Fetch(ctx, id)
	if !ok {
		return nil, outcomeFailed
	}

	rec, err := extract.Extract(doc)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed")
		return nil, outcomeFailed
	}

	paper, ok := assemble.Assemble(id, rec)
	if !ok {
		log.Debug().Msg("no industry affiliation")
		return nil, outcomeFiltered
	}
	log.Debug().Strs("companies", paper.CompanyAffiliations).Msg("paper qualifies")
	return paper, outcomeKept
}
