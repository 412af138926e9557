package model

import (
	"slices"
	"testing"
)

// TestFindingID tests that IDs are stable and depend on the key only.
func TestFindingID(t *testing.T) {
	t.Parallel()

	t.Run("same key yields same id", func(t *testing.T) {
		t.Parallel()

		a := NewFinding("prohibited-term", "t", CategoryFDA, SeverityHigh, "https://a.test/", "cure", "x", "text:10")
		b := NewFinding("prohibited-term", "other title", CategoryFTC, SeverityLow, "https://a.test/", "proven", "y", "text:10")
		if a.ID != b.ID {
			t.Errorf("expected equal ids, got %s and %s", a.ID, b.ID)
		}
		if len(a.ID) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a.ID))
		}
	})

	t.Run("field boundaries are not ambiguous", func(t *testing.T) {
		t.Parallel()

		if FindingID("ab", "c", "d") == FindingID("a", "bc", "d") {
			t.Error("expected different ids for shifted fields")
		}
	})
}

// TestSortFindings tests report ordering.
func TestSortFindings(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		{RuleID: "r1", Category: CategoryTechnical, Severity: SeverityLow, PageURL: "https://a.test/"},
		{RuleID: "r2", Category: CategoryFTC, Severity: SeverityHigh, PageURL: "https://a.test/b"},
		{RuleID: "r3", Category: CategoryFDA, Severity: SeverityHigh, PageURL: "https://a.test/z"},
		{RuleID: "r4", Category: CategoryFDA, Severity: SeverityHigh, PageURL: "https://a.test/a"},
		{RuleID: "r5", Category: CategoryHIPAA, Severity: SeverityCritical, PageURL: "https://a.test/"},
	}
	SortFindings(findings)

	var got []string
	for _, f := range findings {
		got = append(got, f.RuleID)
	}
	expected := []string{"r5", "r4", "r3", "r2", "r1"}
	if !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

// TestDeduplicateFindings tests key-based collapsing.
func TestDeduplicateFindings(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		{RuleID: "r", PageURL: "u", Location: "text:1", Severity: SeverityLow},
		{RuleID: "r", PageURL: "u", Location: "text:1", Severity: SeverityHigh},
		{RuleID: "r", PageURL: "u", Location: "text:2", Severity: SeverityLow},
	}
	got := DeduplicateFindings(findings)
	if len(got) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(got))
	}
	if got[0].Severity != SeverityHigh {
		t.Errorf("expected higher severity to be kept, got %s", got[0].Severity)
	}
}
