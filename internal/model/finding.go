package model

import (
	"cmp"
	"encoding/hex"
	"slices"

	"golang.org/x/crypto/sha3"
)

// LocationSite is the location used by findings about the site as a whole.
const LocationSite = "site"

// Finding is a single detected potential compliance issue on one page.
// The pair (RuleID, PageURL, Location) identifies a finding; ID is derived
// from it so that the same issue keeps the same ID across runs.
type Finding struct {
	// ID is the hex SHA3-256 of the identifying triple.
	ID string `json:"id"`

	// RuleID is the identifier of the rule that produced the finding.
	RuleID string `json:"rule_id"`

	// Title is a short description of the rule.
	Title string `json:"title"`

	Category Category `json:"category"`
	Severity Severity `json:"severity"`

	// PageURL is the canonical URL of the page.
	PageURL string `json:"page_url"`

	// Match is the exact text that triggered the rule.
	Match string `json:"match,omitempty"`

	// Excerpt is the match with surrounding context for human review.
	Excerpt string `json:"excerpt,omitempty"`

	// Location is the source and offset of the match, e.g. "text:120",
	// "form[0].action" or "site".
	Location string `json:"location"`
}

// FindingKey is the uniqueness key of a finding.
type FindingKey struct {
	RuleID   string
	PageURL  string
	Location string
}

// NewFinding builds a finding and computes its ID.
func NewFinding(ruleID, title string, category Category, severity Severity, pageURL, match, excerpt, location string) Finding {
	return Finding{
		ID:       FindingID(ruleID, pageURL, location),
		RuleID:   ruleID,
		Title:    title,
		Category: category,
		Severity: severity,
		PageURL:  pageURL,
		Match:    match,
		Excerpt:  excerpt,
		Location: location,
	}
}

// FindingID returns the stable identifier for the given triple.
func FindingID(ruleID, pageURL, location string) string {
	h := sha3.New256()
	for _, part := range []string{ruleID, pageURL, location} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key returns the uniqueness key of the finding.
func (f Finding) Key() FindingKey {
	return FindingKey{RuleID: f.RuleID, PageURL: f.PageURL, Location: f.Location}
}

// CompareFindings orders findings by severity descending, then category,
// then page URL. Rule ID and location break the remaining ties so the order
// is total.
func CompareFindings(a, b Finding) int {
	if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PageURL, b.PageURL); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RuleID, b.RuleID); c != 0 {
		return c
	}
	return cmp.Compare(a.Location, b.Location)
}

// SortFindings sorts findings in report order.
func SortFindings(findings []Finding) {
	slices.SortStableFunc(findings, CompareFindings)
}

// DeduplicateFindings collapses findings that share a key, keeping the one
// with the higher severity. The first occurrence wins ties.
func DeduplicateFindings(findings []Finding) []Finding {
	index := make(map[FindingKey]int, len(findings))
	result := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := f.Key()
		if i, ok := index[key]; ok {
			if f.Severity > result[i].Severity {
				result[i] = f
			}
			continue
		}
		index[key] = len(result)
		result = append(result, f)
	}
	return result
}
