// Package rules detects potential compliance issues on classified pages.
//
// A Rule pairs identity and defaults (ID, category, severity, applicable
// page types) with a Matcher. Matchers are small tagged variants rather than
// per-rule code:
//
//   - PhraseMatcher: a pattern plus context predicates evaluated inside a
//     window of text around each match. A predicate that holds suppresses
//     the match, which is how qualified guarantees and disclaimed drug names
//     are told apart from violations.
//   - VocabularyMatcher: whole-word terms, each with its own category and
//     severity.
//   - TransportMatcher, FormActionMatcher, FormMethodMatcher, HeaderMatcher,
//     ImageMetadataMatcher: checks over page structure rather than text.
//
// SiteRules look at all pages at once and report things that are missing
// from the site as a whole, such as a privacy policy.
//
// The Engine runs every applicable rule on every successfully fetched page
// and collapses findings that share (rule, page, location). Rules are
// stateless, so the finding set does not depend on rule order.
package rules
