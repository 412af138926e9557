package model

// Category is a regulatory grouping used for scoring.
type Category string

const (
	// CategoryHIPAA covers patient data privacy.
	CategoryHIPAA Category = "HIPAA"
	// CategoryFDA covers drug and treatment claims.
	CategoryFDA Category = "FDA"
	// CategoryLegitScript covers online pharmacy certification rules.
	CategoryLegitScript Category = "LegitScript"
	// CategoryFTC covers advertising and consumer protection.
	CategoryFTC Category = "FTC"
	// CategoryTechnical covers transport security and site hygiene.
	CategoryTechnical Category = "Technical"
)

// Categories returns every category in report order.
// Every category is always scored, even when no rule fired for it.
func Categories() []Category {
	return []Category{
		CategoryHIPAA,
		CategoryFDA,
		CategoryLegitScript,
		CategoryFTC,
		CategoryTechnical,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}
