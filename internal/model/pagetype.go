package model

// PageType is the label the classifier assigns to a page.
// It is assigned once per page, before any rule runs.
type PageType string

const (
	// PageTypeBlogPost is editorial content such as articles and news.
	PageTypeBlogPost PageType = "blog_post"
	// PageTypeProductPage sells or prices a treatment or plan.
	PageTypeProductPage PageType = "product_page"
	// PageTypeLegalPage is a privacy policy, terms, or similar notice.
	PageTypeLegalPage PageType = "legal_page"
	// PageTypeHomepage is the site root.
	PageTypeHomepage PageType = "homepage"
	// PageTypeOther is anything the heuristics could not place.
	PageTypeOther PageType = "other"
)

// PageTypes returns all page types in a stable order.
func PageTypes() []PageType {
	return []PageType{
		PageTypeHomepage,
		PageTypeProductPage,
		PageTypeBlogPost,
		PageTypeLegalPage,
		PageTypeOther,
	}
}

// Label returns a short human-readable name.
func (p PageType) Label() string {
	switch p {
	case PageTypeBlogPost:
		return "blog post"
	case PageTypeProductPage:
		return "product page"
	case PageTypeLegalPage:
		return "legal page"
	case PageTypeHomepage:
		return "homepage"
	default:
		return "other"
	}
}
