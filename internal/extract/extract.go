// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls the title, publication date, authors, and
// affiliations out of a PubMed detail document.
//
// Detail documents are populated unevenly: titles, date parts, name parts,
// and affiliations may each be absent. Absent values fall back to defaults;
// only a document with no Article element at all is an error.
package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/pubmed-fetcher/internal/document"
	"github.com/pdiddy/pubmed-fetcher/pkg/types"
)

const (
	// UntitledPlaceholder replaces a missing article title.
	UntitledPlaceholder = "Untitled"

	// SentinelYear stands in for a missing or unreadable publication year.
	SentinelYear = 2025
)

// ExtractionError reports a document with no extractable article.
type ExtractionError struct {
	Root string
}

func (e *ExtractionError) Error() string {
	if e.Root == "" {
		return "no Article element in empty document"
	}
	return "no Article element under <" + e.Root + ">"
}

// Extract reads a detail document into a Record.
func Extract(doc *document.Node) (types.Record, error) {
	article := findArticle(doc)
	if article == nil {
		root := ""
		if doc != nil {
			root = doc.Name
		}
		return types.Record{}, &ExtractionError{Root: root}
	}

	rec := types.Record{
		Title:           title(article),
		PublicationDate: publicationDate(article.Find("PubDate")),
		Authors:         authors(article),
	}
	markCorresponding(&rec)
	return rec, nil
}

func findArticle(doc *document.Node) *document.Node {
	if doc == nil {
		return nil
	}
	if doc.Name == "Article" {
		return doc
	}
	return doc.Find("Article")
}

func title(article *document.Node) string {
	if t, ok := article.Find("ArticleTitle").TextOf(); ok {
		return t
	}
	return UntitledPlaceholder
}

func authors(article *document.Node) []types.Author {
	nodes := article.Find("AuthorList").ChildrenNamed("Author")
	if len(nodes) == 0 {
		nodes = article.FindAll("Author")
	}

	out := make([]types.Author, 0, len(nodes))
	for _, n := range nodes {
		a := types.Author{Name: authorName(n)}
		for _, aff := range n.FindAll("Affiliation") {
			if text, ok := aff.TextOf(); ok {
				a.Affiliations = append(a.Affiliations, text)
			}
		}
		out = append(out, a)
	}
	return out
}

// authorName joins the given and family names, falling back to the
// collective name for group authors.
func authorName(n *document.Node) string {
	var parts []string
	if fore, ok := n.TextOf("ForeName"); ok {
		parts = append(parts, fore)
	}
	if last, ok := n.TextOf("LastName"); ok {
		parts = append(parts, last)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	collective, _ := n.TextOf("CollectiveName")
	return collective
}

// markCorresponding treats the first email address found in any
// affiliation, scanning authors in order, as the corresponding author's.
// The owning author is marked even when the address belongs to someone else
// on a shared affiliation line.
func markCorresponding(rec *types.Record) {
	for i := range rec.Authors {
		for _, aff := range rec.Authors[i].Affiliations {
			email, ok := findEmail(aff)
			if !ok {
				continue
			}
			rec.Authors[i].Email = email
			rec.Authors[i].IsCorresponding = true
			rec.CorrespondingEmail = email
			return
		}
	}
}

// findEmail returns the first whitespace-delimited token containing "@",
// stripped of surrounding punctuation.
func findEmail(text string) (string, bool) {
	if !strings.Contains(text, "@") {
		return "", false
	}
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:()[]<>\"'")
		at := strings.Index(tok, "@")
		if at <= 0 || at == len(tok)-1 {
			continue
		}
		return tok, true
	}
	return "", false
}

// publicationDate builds a calendar date from a PubDate element. Missing or
// unreadable parts default to day 1, January, and SentinelYear.
func publicationDate(pub *document.Node) time.Time {
	year, month, day := SentinelYear, time.January, 1

	if y, ok := pub.TextOf("Year"); ok {
		if v, ok := parseYear(y); ok {
			year = v
		}
	} else if md, ok := pub.TextOf("MedlineDate"); ok {
		if v, m, ok := parseMedlineDate(md); ok {
			year, month = v, m
		}
	}

	if m, ok := pub.TextOf("Month"); ok {
		if v, ok := parseMonth(m); ok {
			month = v
		}
	}
	if d, ok := pub.TextOf("Day"); ok {
		if v, err := strconv.Atoi(d); err == nil && v >= 1 && v <= daysIn(year, month) {
			day = v
		}
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func parseYear(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 || v > 9999 {
		return 0, false
	}
	return v, true
}

// monthNames maps lowercase English month names and abbreviations.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth accepts "3", "03", "Mar", "March", and "mar.".
func parseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		if v >= 1 && v <= 12 {
			return time.Month(v), true
		}
		return 0, false
	}
	m, ok := monthNames[strings.TrimSuffix(strings.ToLower(s), ".")]
	return m, ok
}

// parseMedlineDate reads the leading year and, when present, the first month
// of a free-form MedlineDate such as "2020 Jan-Feb", "1998 Dec-1999 Jan", or
// "2000-2001". Seasons leave the month at January.
func parseMedlineDate(s string) (int, time.Month, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, false
	}
	year, ok := parseYear(strings.SplitN(fields[0], "-", 2)[0])
	if !ok {
		return 0, 0, false
	}
	month := time.January
	if len(fields) > 1 {
		if m, ok := parseMonth(strings.SplitN(fields[1], "-", 2)[0]); ok {
			month = m
		}
	}
	return year, month, true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
