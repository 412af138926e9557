package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/telecheck/internal/model"
)

// ErrInvalidRule is returned by NewEngine for a rule without an ID or
// matcher, or with a duplicate ID.
var ErrInvalidRule = errors.New("invalid rule")

// Engine evaluates page rules and site rules over crawled pages.
type Engine struct {
	rules     []Rule
	siteRules []SiteRule
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules replaces the page rules.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithSiteRules replaces the site rules.
func WithSiteRules(rules ...SiteRule) EngineOption {
	return func(e *Engine) {
		e.siteRules = rules
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine with the built-in catalog unless options
// replace it.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		rules:     DefaultRules(),
		siteRules: DefaultSiteRules(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[string]struct{}, len(e.rules)+len(e.siteRules))
	check := func(id string) error {
		if id == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidRule)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, id)
		}
		seen[id] = struct{}{}
		return nil
	}
	for i := range e.rules {
		if err := check(e.rules[i].ID); err != nil {
			return nil, err
		}
		if e.rules[i].Matcher == nil {
			return nil, fmt.Errorf("%w: %s has no matcher", ErrInvalidRule, e.rules[i].ID)
		}
	}
	for i := range e.siteRules {
		if err := check(e.siteRules[i].ID); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Rules returns the page rules.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// SiteRules returns the site rules.
func (e *Engine) SiteRules() []SiteRule {
	return e.siteRules
}

// Evaluate runs every applicable rule on every successfully fetched page
// and the site rules on the whole set. types maps page URL to page type;
// pages without an entry are treated as PageTypeOther.
//
// The result is deduplicated by (rule, page, location) and sorted.
// A matcher error skips that rule on that page only.
func (e *Engine) Evaluate(pages []*model.PageRecord, types map[string]model.PageType) []model.Finding {
	var findings []model.Finding

	for _, page := range pages {
		if page == nil || !page.Succeeded() {
			continue
		}
		pt, ok := types[page.URL]
		if !ok {
			pt = model.PageTypeOther
		}
		for i := range e.rules {
			rule := &e.rules[i]
			if !rule.AppliesTo(pt) {
				continue
			}
			matches, err := rule.Matcher.Match(Target{Page: page, Type: pt, Rule: rule})
			if err != nil {
				e.logger.Debug("rule skipped", "rule", rule.ID, "url", page.URL, "error", err)
				continue
			}
			for _, m := range matches {
				findings = append(findings, model.NewFinding(
					rule.ID, rule.Title, m.Category, m.Severity, page.URL, m.Text, m.Excerpt, m.Location))
			}
		}
	}

	if root := siteRoot(pages); root != "" {
		for i := range e.siteRules {
			findings = append(findings, e.siteRules[i].Evaluate(root, pages)...)
		}
	}

	findings = model.DeduplicateFindings(findings)
	model.SortFindings(findings)
	return findings
}

// siteRoot returns the origin of the first page followed by "/".
func siteRoot(pages []*model.PageRecord) string {
	for _, p := range pages {
		if p == nil {
			continue
		}
		u, err := url.Parse(p.URL)
		if err != nil || u.Host == "" {
			continue
		}
		return u.Scheme + "://" + u.Host + "/"
	}
	return ""
}
