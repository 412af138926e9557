package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/rules"
)

// Score bands that trigger review advisories.
const (
	criticalBand = 60
	warningBand  = 80
)

// reviewPrefix prefixes the rule ID of score advisories.
const reviewPrefix = "review-"

// templates holds the recommendation text per rule. {term} is replaced with
// the first matched text.
var templates = map[string]string{
	rules.RuleBrandedMedication:      "Remove or qualify references to {term}. Name the generic ingredient, state that a prescription is required, and avoid implying the product is the branded drug.",
	rules.RuleMoneyBackGuarantee:     "Qualify the \"{term}\" with a measurable outcome and a timeframe, or remove it.",
	rules.RuleProhibitedTerm:         "Replace \"{term}\" with substantiated, non-absolute wording.",
	rules.RuleMiracleClaim:           "Remove exaggerated claims such as \"{term}\" unless backed by competent scientific evidence.",
	rules.RuleWeightLossClaim:        "Substantiate or remove weight loss claims such as \"{term}\" and state typical results.",
	rules.RuleMedicalAdvice:          "Rephrase \"{term}\" so treatment decisions are left to a licensed provider after an individual evaluation.",
	rules.RuleHIPAADataSharing:       "Review the data sharing statement \"{term}\" against HIPAA and describe how protected health information is handled.",
	rules.RulePrescriptionNoEval:     "Remove \"{term}\". Prescriptions must follow an evaluation by a licensed provider.",
	rules.RuleInsecureContentClaim:   "Investigate the statement \"{term}\" and make sure patient data is encrypted in transit and at rest.",
	rules.RuleInsecureTransport:      "Serve every page over HTTPS and redirect plain HTTP requests.",
	rules.RuleInsecureFormAction:     "Submit forms to HTTPS endpoints only.",
	rules.RuleHealthFormMethod:       "Use POST for forms that collect health information such as \"{term}\".",
	rules.RuleMissingHSTS:            "Send a Strict-Transport-Security header on HTTPS responses.",
	rules.RuleServerDisclosure:       "Hide server software versions in response headers ({term}).",
	rules.RuleImageMetadata:          "Strip EXIF metadata ({term}) from published images.",
	rules.RuleMissingPrivacyPolicy:   "Publish a privacy policy or notice of privacy practices and link it from every page.",
	rules.RuleMissingTermsConditions: "Publish terms of service and link them from every page.",
}

// Option configures BuildRecommendations.
type Option func(*builder)

type builder struct {
	scores    []model.CategoryScore
	templates map[string]string
}

// WithScoreAdvisories adds a review item for each category scoring below 80:
// High priority under 60, Medium otherwise. Advisories have no related
// findings.
func WithScoreAdvisories(scores []model.CategoryScore) Option {
	return func(b *builder) {
		b.scores = scores
	}
}

// WithTemplate overrides the text for one rule.
func WithTemplate(ruleID, text string) Option {
	return func(b *builder) {
		b.templates[ruleID] = text
	}
}

// BuildRecommendations groups findings by rule and returns one
// recommendation per rule, ordered by priority descending, then category,
// then rule ID.
func BuildRecommendations(findings []model.Finding, opts ...Option) []model.Recommendation {
	b := &builder{templates: make(map[string]string, len(templates))}
	for id, text := range templates {
		b.templates[id] = text
	}
	for _, opt := range opts {
		opt(b)
	}

	// Visit findings in report order so the representative finding of a
	// rule does not depend on input order.
	sorted := slices.Clone(findings)
	model.SortFindings(sorted)

	groups := make(map[string]*model.Recommendation)
	terms := make(map[string]string)
	var order []string
	for _, f := range sorted {
		rec, ok := groups[f.RuleID]
		if !ok {
			rec = &model.Recommendation{
				RuleID:   f.RuleID,
				Category: f.Category,
				Priority: f.Severity,
			}
			groups[f.RuleID] = rec
			terms[f.RuleID] = f.Match
			order = append(order, f.RuleID)
		}
		rec.Priority = max(rec.Priority, f.Severity)
		rec.RelatedFindingIDs = append(rec.RelatedFindingIDs, f.ID)
	}

	recs := make([]model.Recommendation, 0, len(order)+len(b.scores))
	for _, id := range order {
		rec := groups[id]
		rec.Text = b.text(id, terms[id], rec)
		recs = append(recs, *rec)
	}
	recs = append(recs, b.advisories()...)

	slices.SortStableFunc(recs, compare)
	return recs
}

func compare(a, b model.Recommendation) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	return cmp.Compare(a.RuleID, b.RuleID)
}

func (b *builder) text(ruleID, term string, rec *model.Recommendation) string {
	tmpl, ok := b.templates[ruleID]
	if !ok {
		n := len(rec.RelatedFindingIDs)
		return fmt.Sprintf("Review %d %s finding(s) reported by rule %s.", n, rec.Category, ruleID)
	}
	if term == "" {
		term = ruleID
	}
	return strings.ReplaceAll(tmpl, "{term}", term)
}

func (b *builder) advisories() []model.Recommendation {
	var recs []model.Recommendation
	for _, cs := range b.scores {
		var priority model.Severity
		switch {
		case cs.Score < criticalBand:
			priority = model.SeverityHigh
		case cs.Score < warningBand:
			priority = model.SeverityMedium
		default:
			continue
		}
		recs = append(recs, model.Recommendation{
			RuleID:   reviewPrefix + strings.ToLower(string(cs.Category)),
			Category: cs.Category,
			Text:     fmt.Sprintf("%s compliance scored %d/100. Have the %s findings reviewed by counsel before publishing further changes.", cs.Category, cs.Score, cs.Category),
			Priority: priority,
		})
	}
	return recs
}
