// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detail fetches one PubMed record at a time through the efetch
// endpoint, consulting the record cache first.
package detail

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-fetcher/internal/document"
)

// DefaultBaseURL is the NCBI E-utilities root. Variable for testing.
var DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Getter performs a GET and returns the response body.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// Cache is the subset of *cache.RecordCache the fetcher uses.
type Cache interface {
	Get(id string) (*document.Node, bool)
	Put(id string, payload *document.Node)
}

// nopCache is used when caching is disabled.
type nopCache struct{}

func (nopCache) Get(string) (*document.Node, bool) { return nil, false }
func (nopCache) Put(string, *document.Node)        {}

// Fetcher retrieves detail documents.
type Fetcher struct {
	client  Getter
	cache   Cache
	baseURL string
	logger  zerolog.Logger
}

// New returns a Fetcher. A nil cache disables caching and an empty baseURL
// selects DefaultBaseURL.
func New(client Getter, cache Cache, baseURL string, logger zerolog.Logger) *Fetcher {
	if cache == nil {
		cache = nopCache{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		client:  client,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "detail").Logger(),
	}
}

// Fetch returns the detail document for id. A cached copy is returned
// without a request. Transport and decode failures are logged and reported
// as absent.
func (f *Fetcher) Fetch(ctx context.Context, id string) (*document.Node, bool) {
	if doc, ok := f.cache.Get(id); ok {
		f.logger.Debug().Str("pmid", id).Msg("cache hit")
		return doc, true
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", id)
	params.Set("retmode", "xml")

	body, err := f.client.Get(ctx, f.baseURL+"/efetch.fcgi", params)
	if err != nil {
		f.logger.Warn().Err(err).Str("pmid", id).Msg("fetching record failed")
		return nil, false
	}

	doc, err := document.ParseXML(body)
	if err != nil {
		f.logger.Warn().Err(err).Str("pmid", id).Msg("decoding record failed")
		return nil, false
	}

	f.cache.Put(id, doc)
	return doc, true
}
