package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/telecheck/internal/model"
)

var (
	defaultBlogSegments = []string{
		"blog", "blogs", "posts", "post", "articles", "article", "news",
		"insights", "resources", "learn", "education", "journal",
	}
	defaultProductSegments = []string{
		"shop", "product", "products", "buy", "order", "pricing", "plans",
		"subscription", "subscriptions", "store", "treatments",
	}
	defaultLegalPrefixes = []string{
		"privacy", "terms", "hipaa", "legal", "disclaimer",
		"notice-of-privacy-practices", "tos", "consent",
	}
)

var (
	// pricePattern matches dollar amounts such as $99 or $199.00.
	pricePattern = regexp.MustCompile(`\$\s?\d{1,5}(?:,\d{3})*(?:\.\d{2})?`)

	// addToCartPattern matches submit labels of cart forms.
	addToCartPattern = regexp.MustCompile(`(?i)\b(add to (cart|bag|basket)|buy now|checkout|check out)\b`)

	// purchasePattern matches submit labels of broader purchase forms.
	purchasePattern = regexp.MustCompile(`(?i)\b(buy|order|purchase|checkout|subscribe|pay|enroll|get started|start (now|your visit|treatment))\b`)
)

// Classifier assigns page types.
type Classifier struct {
	blogSegments    map[string]bool
	productSegments map[string]bool
	legalPrefixes   []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBlogSegments adds path segments that mark blog posts.
func WithBlogSegments(segments ...string) Option {
	return func(c *Classifier) {
		for _, s := range segments {
			c.blogSegments[strings.ToLower(s)] = true
		}
	}
}

// WithProductSegments adds path segments that mark product pages.
func WithProductSegments(segments ...string) Option {
	return func(c *Classifier) {
		for _, s := range segments {
			c.productSegments[strings.ToLower(s)] = true
		}
	}
}

// WithLegalPrefixes adds path segment prefixes that mark legal pages.
func WithLegalPrefixes(prefixes ...string) Option {
	return func(c *Classifier) {
		for _, p := range prefixes {
			c.legalPrefixes = append(c.legalPrefixes, strings.ToLower(p))
		}
	}
}

// New creates a Classifier with the default vocabulary.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		blogSegments:    toSet(defaultBlogSegments),
		productSegments: toSet(defaultProductSegments),
		legalPrefixes:   append([]string(nil), defaultLegalPrefixes...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the page type of page.
func (c *Classifier) Classify(page *model.PageRecord) model.PageType {
	segments := pathSegments(page.URL)

	for _, seg := range segments {
		if c.blogSegments[seg] {
			return model.PageTypeBlogPost
		}
	}
	for _, seg := range segments {
		if c.productSegments[seg] {
			return model.PageTypeProductPage
		}
	}
	if hasAddToCartForm(page.Forms) {
		return model.PageTypeProductPage
	}
	for _, seg := range segments {
		for _, prefix := range c.legalPrefixes {
			if strings.HasPrefix(seg, prefix) {
				return model.PageTypeLegalPage
			}
		}
	}
	if len(segments) == 0 {
		return model.PageTypeHomepage
	}

	doc := parseDocument(page.HTML)
	if looksLikeArticle(doc) {
		return model.PageTypeBlogPost
	}
	if hasPrice(page, doc) && hasPurchaseForm(page.Forms) {
		return model.PageTypeProductPage
	}
	return model.PageTypeOther
}

// ClassifyAll labels every successfully fetched page.
func (c *Classifier) ClassifyAll(pages []*model.PageRecord) map[string]model.PageType {
	types := make(map[string]model.PageType, len(pages))
	for _, p := range pages {
		if !p.Succeeded() {
			continue
		}
		types[p.URL] = c.Classify(p)
	}
	return types
}

// pathSegments returns the lower-cased non-empty path segments of rawURL.
func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var segments []string
	for _, s := range strings.Split(strings.ToLower(u.Path), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// hasAddToCartForm reports whether any form adds an item to a cart.
func hasAddToCartForm(forms []model.Form) bool {
	for _, f := range forms {
		for _, label := range f.SubmitLabels {
			if addToCartPattern.MatchString(label) {
				return true
			}
		}
		if action := strings.ToLower(f.Action); action != "" {
			if u, err := url.Parse(action); err == nil &&
				(strings.Contains(u.Path, "cart") || strings.Contains(u.Path, "checkout")) {
				return true
			}
		}
		for _, field := range f.Fields {
			name := strings.ToLower(field.Name)
			if name == "add-to-cart" || name == "add_to_cart" {
				return true
			}
		}
	}
	return false
}

// hasPurchaseForm reports whether any form looks like it starts a purchase.
func hasPurchaseForm(forms []model.Form) bool {
	for _, f := range forms {
		for _, label := range f.SubmitLabels {
			if purchasePattern.MatchString(label) {
				return true
			}
		}
	}
	return hasAddToCartForm(forms)
}

func parseDocument(markup string) *goquery.Document {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// looksLikeArticle checks for editorial markup. A published-time meta tag
// is enough on its own; otherwise two of article element, byline and
// dated <time> are required.
func looksLikeArticle(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	if doc.Find(`meta[property="article:published_time"]`).Length() > 0 {
		return true
	}

	signals := 0
	if doc.Find("article").Length() > 0 {
		signals++
	}
	if doc.Find(`[rel="author"], .byline, .author, [itemprop="author"]`).Length() > 0 {
		signals++
	}
	if doc.Find("time[datetime]").Length() > 0 {
		signals++
	}
	return signals >= 2
}

// hasPrice checks for price markup or dollar amounts in visible text.
func hasPrice(page *model.PageRecord, doc *goquery.Document) bool {
	if pricePattern.MatchString(page.TextContent) {
		return true
	}
	if doc == nil {
		return false
	}
	return doc.Find(`[itemprop="price"], .price, [data-price]`).Length() > 0
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
