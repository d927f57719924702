// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides whether an affiliation string names a
// pharmaceutical, biotech, or other commercial organization.
//
// The test is a case-insensitive substring match against Keywords. It is a
// heuristic: "Research and Development Office, University of X" matches, and
// "X Therapeutics" does not.
package classify

import "strings"

// Keywords are matched case-insensitively anywhere in an affiliation.
var Keywords = []string{
	"pharmaceutical",
	"pharmaceuticals",
	"pharma",
	"biopharma",
	"biopharmaceutical",
	"biopharmaceuticals",
	"biotech",
	"biotechnology",
	"drug company",
	"drug development",
	"drug discovery",
	"clinical development",
	"r&d",
	"research and development",
	"inc.",
	"corp.",
	"corporation",
	"ltd.",
	"limited",
	"llc",
	"gmbh",
	"laboratories",
}

// IsIndustry reports whether text contains any of Keywords.
func IsIndustry(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Clean returns the trimmed part of an affiliation before its first comma,
// which is usually the organization name.
func Clean(text string) string {
	head, _, _ := strings.Cut(text, ",")
	return strings.TrimSpace(head)
}
