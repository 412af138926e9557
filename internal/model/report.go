package model

import "time"

// CoverageReason explains why a report covers only part of a site.
type CoverageReason string

const (
	// CoverageComplete means the crawl exhausted its frontier.
	CoverageComplete CoverageReason = ""
	// CoverageAborted means the caller cancelled the analysis.
	CoverageAborted CoverageReason = "aborted"
	// CoverageTimeout means the crawl exceeded its wall-clock budget.
	CoverageTimeout CoverageReason = "timeout"
	// CoverageNoPages means no page could be fetched.
	CoverageNoPages CoverageReason = "no-pages"
	// CoveragePageLimit means the crawl stopped at the page limit with
	// links still unvisited.
	CoveragePageLimit CoverageReason = "page-limit"
)

// Coverage tells consumers whether the scores describe the whole site.
// Callers must check PagesAnalyzed before trusting scores: with zero pages
// every category reads 100 vacuously.
type Coverage struct {
	Partial bool           `json:"partial"`
	Reason  CoverageReason `json:"reason,omitempty"`
}

// CategoryScore is the 0-100 score of one category (higher is more compliant).
type CategoryScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`

	// Findings is the number of findings that contributed to the score.
	Findings int `json:"findings"`
}

// Recommendation is an action item built from one rule's findings.
type Recommendation struct {
	// RuleID is the rule the recommendation addresses. Score advisories use
	// "review-<category>".
	RuleID   string   `json:"rule_id"`
	Category Category `json:"category"`
	Text     string   `json:"text"`

	// Priority is the highest severity among the related findings.
	Priority Severity `json:"priority"`

	// RelatedFindingIDs lists the IDs of all contributing findings.
	RelatedFindingIDs []string `json:"related_finding_ids,omitempty"`
}

// Summary counts findings by severity.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Report is the result of one analysis run. It is produced once and not
// modified afterwards.
type Report struct {
	// SiteURL is the canonical seed URL.
	SiteURL string `json:"site_url"`

	// DateAnalyzed is when the analysis started.
	DateAnalyzed time.Time `json:"date_analyzed"`

	// Duration is the wall-clock time of the analysis.
	Duration time.Duration `json:"duration"`

	// PagesAnalyzed counts successfully fetched pages.
	PagesAnalyzed int `json:"pages_analyzed"`

	// PagesCrawled counts every page record, failures included.
	PagesCrawled int `json:"pages_crawled"`

	OverallScore   int             `json:"overall_score"`
	CategoryScores []CategoryScore `json:"category_scores"`

	// Findings are sorted by severity descending, then category, then URL.
	Findings []Finding `json:"findings"`

	Recommendations []Recommendation `json:"recommendations"`

	// PageTypes maps each analyzed page URL to its label.
	PageTypes map[string]PageType `json:"page_types,omitempty"`

	// FailedPages maps URLs that could not be fetched to the reason.
	FailedPages map[string]string `json:"failed_pages,omitempty"`

	Coverage Coverage `json:"coverage"`
	Summary  Summary  `json:"summary"`
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		default:
			s.Info++
		}
	}
	s.Total = len(findings)
	return s
}

// ScoreFor returns the score of a category, or 100 if it is missing.
func (r *Report) ScoreFor(c Category) int {
	for _, cs := range r.CategoryScores {
		if cs.Category == c {
			return cs.Score
		}
	}
	return 100
}

// HasFindings returns true if the report has at least one finding.
func (r *Report) HasFindings() bool {
	return len(r.Findings) > 0
}
