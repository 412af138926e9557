package rules

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/telecheck/internal/model"
)

// ExcerptRadius is the number of characters kept on each side of a match.
const ExcerptRadius = 50

// Rule is a named compliance check.
type Rule struct {
	ID       string
	Title    string
	Category model.Category
	Severity model.Severity

	// PageTypes lists the page types the rule applies to; empty means all.
	PageTypes []model.PageType

	Matcher Matcher
}

// AppliesTo reports whether the rule runs on pages of type pt.
func (r *Rule) AppliesTo(pt model.PageType) bool {
	return len(r.PageTypes) == 0 || slices.Contains(r.PageTypes, pt)
}

// Target is what a matcher inspects: a page, its type and the rule being
// evaluated.
type Target struct {
	Page *model.PageRecord
	Type model.PageType
	Rule *Rule
}

// Match is one occurrence reported by a matcher.
type Match struct {
	Text     string
	Excerpt  string
	Location string
	Category model.Category
	Severity model.Severity
}

// Matcher finds occurrences of a rule on a page. An error means the page
// could not be processed; the engine skips the rule for that page.
type Matcher interface {
	Match(target Target) ([]Match, error)
}

// newMatch fills category and severity from the rule.
func (t Target) newMatch(text, excerpt, location string) Match {
	return Match{
		Text:     text,
		Excerpt:  excerpt,
		Location: location,
		Category: t.Rule.Category,
		Severity: t.Rule.Severity,
	}
}

// source is one piece of page text that phrase rules scan.
type source struct {
	name string
	text string
}

// textSources returns the page text in scan order: visible text, title,
// meta description, then image alt and title attributes.
func textSources(page *model.PageRecord) []source {
	sources := []source{
		{name: "text", text: page.TextContent},
		{name: "title", text: page.Title},
		{name: "meta", text: page.MetaDescription},
	}
	for i, img := range page.Images {
		sources = append(sources,
			source{name: "img[" + strconv.Itoa(i) + "].alt", text: img.Alt},
			source{name: "img[" + strconv.Itoa(i) + "].title", text: img.Title},
		)
	}
	return sources
}

// location formats a source name and byte offset.
func location(sourceName string, offset int) string {
	return sourceName + ":" + strconv.Itoa(offset)
}

// window returns the text within radius bytes of [start, end), widened to
// rune boundaries.
func window(text string, start, end, radius int) string {
	from := max(start-radius, 0)
	to := min(end+radius, len(text))
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}

// maskedWindow is window with the match itself blanked out, so that a
// context predicate is satisfied by surrounding text only.
func maskedWindow(text string, start, end, radius int) string {
	w := window(text, start, end, radius)
	from := max(start-radius, 0)
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	offset := start - from
	return w[:offset] + strings.Repeat(" ", end-start) + w[offset+end-start:]
}

// excerpt returns the match with ExcerptRadius characters of context,
// marking truncation with "...".
func excerpt(text string, start, end int) string {
	w := window(text, start, end, ExcerptRadius)
	var b strings.Builder
	if start-ExcerptRadius > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.TrimSpace(w))
	if end+ExcerptRadius < len(text) {
		b.WriteString("...")
	}
	return b.String()
}
