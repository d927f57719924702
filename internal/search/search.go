// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search resolves a PubMed query term to an ordered list of PMIDs
// through the NCBI esearch endpoint.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-fetcher/internal/document"
)

// DefaultBaseURL is the NCBI E-utilities root. Variable for testing.
var DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	// MaxResultsLimit is the most identifiers a single run may request.
	MaxResultsLimit = 1000

	// DefaultMaxResults is used when a query does not set MaxResults.
	DefaultMaxResults = 100
)

// Getter performs a GET and returns the response body.
// *httputil.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// Query is one search request.
type Query struct {
	Term       string
	MaxResults int
}

// Limit returns MaxResults clamped to 1..MaxResultsLimit, or
// DefaultMaxResults when unset.
func (q Query) Limit() int {
	switch {
	case q.MaxResults <= 0:
		return DefaultMaxResults
	case q.MaxResults > MaxResultsLimit:
		return MaxResultsLimit
	default:
		return q.MaxResults
	}
}

// SearchError reports an esearch response that did not carry an identifier
// list. Err is set when the body could not be decoded at all.
type SearchError struct {
	Term   string
	Reason string
	Err    error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search %q: %s: %v", e.Term, e.Reason, e.Err)
	}
	return fmt.Sprintf("search %q: %s", e.Term, e.Reason)
}

func (e *SearchError) Unwrap() error { return e.Err }

// esearchResponse mirrors the retmode=json envelope. IDList is a pointer so
// an absent field can be told apart from an empty one.
type esearchResponse struct {
	Result *struct {
		Count  string    `json:"count"`
		IDList *[]string `json:"idlist"`
		Error  string    `json:"ERROR"`
	} `json:"esearchresult"`
	Error string `json:"error"`
}

// Searcher issues esearch requests.
type Searcher struct {
	client  Getter
	baseURL string
	logger  zerolog.Logger
}

// New returns a Searcher. An empty baseURL selects DefaultBaseURL.
func New(client Getter, baseURL string, logger zerolog.Logger) *Searcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Searcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "search").Logger(),
	}
}

// Search returns up to q.Limit() PMIDs in relevance order with duplicates
// removed. Transport failures are returned as the client reported them; a
// body without an identifier list yields a *SearchError.
func (s *Searcher) Search(ctx context.Context, q Query) ([]string, error) {
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, &SearchError{Term: q.Term, Reason: "empty query term"}
	}
	limit := q.Limit()

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(limit))

	s.logger.Debug().Str("term", term).Int("retmax", limit).Msg("searching")

	body, err := s.client.Get(ctx, s.baseURL+"/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SearchError{
			Term:   term,
			Reason: "undecodable response",
			Err:    &document.DecodeError{Format: "json", Err: err},
		}
	}
	if resp.Result == nil {
		reason := "response has no esearchresult"
		if resp.Error != "" {
			reason = resp.Error
		}
		return nil, &SearchError{Term: term, Reason: reason}
	}
	if resp.Result.IDList == nil {
		reason := "response has no idlist"
		if resp.Result.Error != "" {
			reason = resp.Result.Error
		}
		return nil, &SearchError{Term: term, Reason: reason}
	}

	ids := dedupe(*resp.Result.IDList, limit)
	s.logger.Debug().Str("term", term).Str("count", resp.Result.Count).Int("ids", len(ids)).Msg("search complete")
	return ids, nil
}

// dedupe drops blank and repeated identifiers, keeping first-seen order, and
// stops at limit.
func dedupe(ids []string, limit int) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, min(len(ids), limit))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out
}
