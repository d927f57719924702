// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble turns an extracted record into an output Paper when at
// least one author has an industry affiliation.
package assemble

import (
	"github.com/pdiddy/pubmed-fetcher/internal/classify"
	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

// Assemble builds the Paper for id. It reports false when no affiliation of
// any author classifies as industry.
func Assemble(id string, rec types.Record) (*types.Paper, bool) {
	var (
		names     []string
		companies []string
		seen      = make(map[string]bool)
	)

	for _, a := range rec.Authors {
		industry := false
		for _, aff := range a.Affiliations {
			if !classify.IsIndustry(aff) {
				continue
			}
			name := classify.Clean(aff)
			if name == "" {
				continue
			}
			industry = true
			if !seen[name] {
				seen[name] = true
				companies = append(companies, name)
			}
		}
		if industry && a.Name != "" {
			names = append(names, a.Name)
		}
	}

	if len(companies) == 0 {
		return nil, false
	}

	authors := make([]types.Author, len(rec.Authors))
	copy(authors, rec.Authors)

	return &types.Paper{
		ID:                  id,
		Title:               rec.Title,
		PublicationDate:     rec.PublicationDate,
		Authors:             authors,
		NonAcademicAuthors:  names,
		CompanyAffiliations: companies,
		CorrespondingEmail:  rec.CorrespondingEmail,
	}, true
}
