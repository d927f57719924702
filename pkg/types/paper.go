// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the get-papers-list pipeline.
//
// Record is what the field extractor produces from one PubMed detail
// document; Paper is the filtered output record handed to the writers.
package types

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for display and storage.
const DateLayout = "2006-01-02"

// Columns names the six display fields of a Paper in output order.
var Columns = []string{
	"PubmedID",
	"Title",
	"Publication Date",
	"Non-academic Author(s)",
	"Company Affiliation(s)",
	"Corresponding Author Email",
}

// Author is one author of a record as found in the detail document.
type Author struct {
	// Name is the given name followed by the family name.
	Name string `json:"name" yaml:"name"`

	// Affiliations lists every affiliation string attached to the author, in
	// document order.
	Affiliations []string `json:"affiliations" yaml:"affiliations"`

	// Email is set only on the author whose affiliation carried the first
	// email address in the document.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// IsCorresponding marks the author treated as the corresponding author.
	IsCorresponding bool `json:"is_corresponding" yaml:"is_corresponding"`
}

// Record holds the fields extracted from a single detail document.
type Record struct {
	Title              string
	PublicationDate    time.Time
	Authors            []Author
	CorrespondingEmail string
}

// Paper is an output record: a PubMed article with at least one industry
// affiliation. Papers are immutable once assembled.
type Paper struct {
	// ID is the PubMed identifier (PMID).
	ID string `json:"pubmed_id" yaml:"pubmed_id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// PublicationDate is the calendar publication date (UTC midnight).
	PublicationDate time.Time `json:"-" yaml:"-"`

	// Authors lists every author of the article in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// NonAcademicAuthors lists the names of authors with an industry affiliation.
	NonAcademicAuthors []string `json:"non_academic_authors" yaml:"non_academic_authors"`

	// CompanyAffiliations is the deduplicated set of cleaned industry affiliations.
	CompanyAffiliations []string `json:"company_affiliations" yaml:"company_affiliations"`

	// CorrespondingEmail is empty when no affiliation carried an email address.
	CorrespondingEmail string `json:"corresponding_author_email,omitempty" yaml:"corresponding_author_email,omitempty"`
}

// Date returns the publication date formatted as YYYY-MM-DD.
func (p Paper) Date() string {
	if p.PublicationDate.IsZero() {
		return ""
	}
	return p.PublicationDate.Format(DateLayout)
}

// Row returns the six display fields in Columns order.
func (p Paper) Row() []string {
	return []string{
		p.ID,
		p.Title,
		p.Date(),
		strings.Join(p.NonAcademicAuthors, "; "),
		strings.Join(p.CompanyAffiliations, "; "),
		p.CorrespondingEmail,
	}
}
