package recommend

import (
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/rules"
)

func TestBuildRecommendationsGroupsByRule(t *testing.T) {
	t.Parallel()

	f1 := model.NewFinding(rules.RuleProhibitedTerm, "t", model.CategoryFDA, model.SeverityLow, "https://example.com/a", "semaglutide", "", "text:0")
	f2 := model.NewFinding(rules.RuleProhibitedTerm, "t", model.CategoryFDA, model.SeverityHigh, "https://example.com/b", "proven", "", "text:5")
	f3 := model.NewFinding(rules.RuleMoneyBackGuarantee, "t", model.CategoryFTC, model.SeverityHigh, "https://example.com/a", "money-back guarantee", "", "text:9")

	recs := BuildRecommendations([]model.Finding{f1, f2, f3})
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}

	// Both HIGH: FDA sorts before FTC.
	if recs[0].RuleID != rules.RuleProhibitedTerm {
		t.Errorf("expected %s first, got %s", rules.RuleProhibitedTerm, recs[0].RuleID)
	}
	if recs[0].Priority != model.SeverityHigh {
		t.Errorf("expected priority HIGH, got %s", recs[0].Priority)
	}
	if len(recs[0].RelatedFindingIDs) != 2 {
		t.Errorf("expected 2 related findings, got %d", len(recs[0].RelatedFindingIDs))
	}
	if !slices.Contains(recs[0].RelatedFindingIDs, f1.ID) || !slices.Contains(recs[0].RelatedFindingIDs, f2.ID) {
		t.Errorf("expected related IDs %s and %s, got %v", f1.ID, f2.ID, recs[0].RelatedFindingIDs)
	}
	if !strings.Contains(recs[0].Text, "proven") {
		t.Errorf("expected text to name the highest severity term, got %q", recs[0].Text)
	}
	if recs[1].RuleID != rules.RuleMoneyBackGuarantee {
		t.Errorf("expected %s second, got %s", rules.RuleMoneyBackGuarantee, recs[1].RuleID)
	}
}

func TestBuildRecommendationsOrdering(t *testing.T) {
	t.Parallel()

	findings := []model.Finding{
		model.NewFinding("z-rule", "t", model.CategoryTechnical, model.SeverityLow, "https://example.com/", "", "", "url"),
		model.NewFinding("b-rule", "t", model.CategoryHIPAA, model.SeverityMedium, "https://example.com/", "", "", "url"),
		model.NewFinding("a-rule", "t", model.CategoryHIPAA, model.SeverityMedium, "https://example.com/", "", "", "url"),
		model.NewFinding("c-rule", "t", model.CategoryFTC, model.SeverityCritical, "https://example.com/", "", "", "url"),
	}

	recs := BuildRecommendations(findings)
	var got []string
	for _, r := range recs {
		got = append(got, r.RuleID)
	}
	want := []string{"c-rule", "a-rule", "b-rule", "z-rule"}
	if !slices.Equal(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
	if !strings.Contains(recs[0].Text, "c-rule") {
		t.Errorf("expected fallback text to name the rule, got %q", recs[0].Text)
	}
}

func TestBuildRecommendationsEmpty(t *testing.T) {
	t.Parallel()

	if recs := BuildRecommendations(nil); len(recs) != 0 {
		t.Errorf("expected no recommendations, got %d", len(recs))
	}
}

func TestWithScoreAdvisories(t *testing.T) {
	t.Parallel()

	scores := []model.CategoryScore{
		{Category: model.CategoryHIPAA, Score: 100},
		{Category: model.CategoryFDA, Score: 40},
		{Category: model.CategoryFTC, Score: 75},
	}
	recs := BuildRecommendations(nil, WithScoreAdvisories(scores))
	if len(recs) != 2 {
		t.Fatalf("expected 2 advisories, got %d", len(recs))
	}
	if recs[0].RuleID != "review-fda" || recs[0].Priority != model.SeverityHigh {
		t.Errorf("expected review-fda HIGH first, got %s %s", recs[0].RuleID, recs[0].Priority)
	}
	if recs[1].RuleID != "review-ftc" || recs[1].Priority != model.SeverityMedium {
		t.Errorf("expected review-ftc MEDIUM second, got %s %s", recs[1].RuleID, recs[1].Priority)
	}
	if len(recs[0].RelatedFindingIDs) != 0 {
		t.Errorf("expected no related findings, got %v", recs[0].RelatedFindingIDs)
	}
}

func TestWithTemplate(t *testing.T) {
	t.Parallel()

	f := model.NewFinding(rules.RuleMiracleClaim, "t", model.CategoryFTC, model.SeverityHigh, "https://example.com/", "breakthrough", "", "text:0")
	recs := BuildRecommendations([]model.Finding{f}, WithTemplate(rules.RuleMiracleClaim, "Drop {term}."))
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Text != "Drop breakthrough." {
		t.Errorf("expected %q, got %q", "Drop breakthrough.", recs[0].Text)
	}
}
