package rules

import (
	"regexp"
	"slices"
	"strings"

	"github.com/nao1215/telecheck/internal/model"
)

// Context is a predicate over the text window around a match. It holds when
// every pattern in AllOf matches somewhere in the window.
type Context struct {
	Name  string
	AllOf []*regexp.Regexp
}

// Holds reports whether the predicate is satisfied by window.
func (c Context) Holds(window string) bool {
	if len(c.AllOf) == 0 {
		return false
	}
	for _, re := range c.AllOf {
		if !re.MatchString(window) {
			return false
		}
	}
	return true
}

// PhraseMatcher reports every match of Pattern in the page text unless one
// of the Suppress contexts holds within Window characters of it.
type PhraseMatcher struct {
	Pattern *regexp.Regexp

	// Window is the context radius examined by Suppress predicates.
	Window int

	// Suppress lists contexts that turn a match into compliant phrasing.
	Suppress []Context

	// SeverityByPageType overrides the rule severity for some page types.
	SeverityByPageType map[model.PageType]model.Severity
}

// Match implements Matcher.
func (m *PhraseMatcher) Match(target Target) ([]Match, error) {
	severity := target.Rule.Severity
	if s, ok := m.SeverityByPageType[target.Type]; ok {
		severity = s
	}

	var matches []Match
	for _, src := range textSources(target.Page) {
		if src.text == "" {
			continue
		}
		for _, loc := range m.Pattern.FindAllStringIndex(src.text, -1) {
			start, end := loc[0], loc[1]
			if m.suppressed(maskedWindow(src.text, start, end, m.Window)) {
				continue
			}
			match := target.newMatch(src.text[start:end], excerpt(src.text, start, end), location(src.name, start))
			match.Severity = severity
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (m *PhraseMatcher) suppressed(w string) bool {
	for _, c := range m.Suppress {
		if c.Holds(w) {
			return true
		}
	}
	return false
}

// Term is one entry of a fixed vocabulary.
type Term struct {
	Phrase   string
	Category model.Category
	Severity model.Severity

	// ExcludePageTypes lists page types where the term is not reported.
	ExcludePageTypes []model.PageType

	pattern *regexp.Regexp
}

// VocabularyMatcher reports whole-word occurrences of fixed terms. Each term
// carries its own category and severity.
type VocabularyMatcher struct {
	terms []Term
}

// NewVocabularyMatcher compiles the terms. Matching is case-insensitive and
// requires word boundaries, so "cure" does not match "secure".
func NewVocabularyMatcher(terms ...Term) *VocabularyMatcher {
	compiled := make([]Term, 0, len(terms))
	for _, t := range terms {
		t.pattern = wholeWord(t.Phrase)
		compiled = append(compiled, t)
	}
	return &VocabularyMatcher{terms: compiled}
}

// Terms returns the vocabulary.
func (m *VocabularyMatcher) Terms() []Term {
	return slices.Clone(m.terms)
}

// Match implements Matcher.
func (m *VocabularyMatcher) Match(target Target) ([]Match, error) {
	var matches []Match
	for _, src := range textSources(target.Page) {
		if src.text == "" {
			continue
		}
		for _, term := range m.terms {
			if slices.Contains(term.ExcludePageTypes, target.Type) {
				continue
			}
			for _, loc := range term.pattern.FindAllStringIndex(src.text, -1) {
				start, end := loc[0], loc[1]
				match := target.newMatch(src.text[start:end], excerpt(src.text, start, end), location(src.name, start))
				match.Category = term.Category
				match.Severity = term.Severity
				matches = append(matches, match)
			}
		}
	}
	return matches, nil
}

// wholeWord builds a case-insensitive pattern for phrase with word
// boundaries and flexible inner whitespace.
func wholeWord(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `[\s-]+`) + `\b`)
}
