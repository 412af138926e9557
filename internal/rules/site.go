package rules

import (
	"net/url"
	"regexp"

	"github.com/nao1215/telecheck/internal/model"
)

// PageMention looks for evidence of a page anywhere on the site: a crawled
// URL or discovered link whose path matches PathPattern, or page text
// matching TextPattern.
type PageMention struct {
	PathPattern *regexp.Regexp
	TextPattern *regexp.Regexp
}

// Found reports whether any successfully fetched page mentions the target.
func (m PageMention) Found(pages []*model.PageRecord) bool {
	for _, p := range pages {
		if !p.Succeeded() {
			continue
		}
		if m.pathMatches(p.URL) {
			return true
		}
		for _, link := range p.Links {
			if m.pathMatches(link) {
				return true
			}
		}
		if m.TextPattern != nil {
			for _, src := range textSources(p) {
				if m.TextPattern.MatchString(src.text) {
					return true
				}
			}
		}
	}
	return false
}

func (m PageMention) pathMatches(rawURL string) bool {
	if m.PathPattern == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return m.PathPattern.MatchString(u.Path)
}

// SiteRule reports something the site as a whole lacks.
type SiteRule struct {
	ID       string
	Title    string
	Category model.Category
	Severity model.Severity

	// Required must be found on some page, otherwise the rule fires.
	Required PageMention

	// Excerpt is the finding text shown to reviewers.
	Excerpt string
}

// Evaluate returns a finding for the site root when the required page is
// absent. It reports nothing when no page was fetched, since absence cannot
// be told apart from a failed crawl.
func (r *SiteRule) Evaluate(siteURL string, pages []*model.PageRecord) []model.Finding {
	anySucceeded := false
	for _, p := range pages {
		if p.Succeeded() {
			anySucceeded = true
			break
		}
	}
	if !anySucceeded || r.Required.Found(pages) {
		return nil
	}
	return []model.Finding{
		model.NewFinding(r.ID, r.Title, r.Category, r.Severity, siteURL, "", r.Excerpt, model.LocationSite),
	}
}
