package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/telecheck/internal/model"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
	htmlElementButton   = "button"
)

// skippedTextElements hold no visible text.
var skippedTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// blockElements end a run of text so words in adjacent blocks are not glued.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"nav": true, "main": true, "aside": true, "table": true, "tr": true,
	"td": true, "th": true, "form": true, "label": true, "button": true,
	"blockquote": true, "figure": true, "figcaption": true,
}

// Parser extracts information from HTML content.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains everything extracted from an HTML page in one pass.
type ParseResult struct {
	Title           string
	MetaDescription string

	// Text is the visible text with whitespace collapsed.
	Text string

	// Headings contains h1-h6 text in document order.
	Headings []string

	// Links contains resolved anchor and form action targets, deduplicated,
	// in document order.
	Links []string

	Forms  []model.Form
	Images []model.Image

	// MetaTags maps meta name or property to content.
	MetaTags map[string]string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts all relevant information.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		MetaTags: make(map[string]string),
	}
	seenLinks := make(map[string]bool)
	addLink := func(link string) {
		if link == "" || seenLinks[link] {
			return
		}
		seenLinks[link] = true
		result.Links = append(result.Links, link)
	}

	// <base href> changes how relative links resolve.
	if base := findBase(doc); base != "" {
		if u, err := url.Parse(base); err == nil {
			p.baseURL = p.baseURL.ResolveReference(u)
		}
	}

	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedTextElements[n.Data] {
				p.processHead(n, result)
				return
			}
			p.processElement(n, result, addLink)
			if blockElements[n.Data] {
				text.WriteString(" ")
			}
		case html.TextNode:
			text.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			text.WriteString(" ")
		}
	}
	walk(doc)

	result.Text = collapseSpace(text.String())
	result.MetaDescription = result.MetaTags["description"]
	return result, nil
}

// processHead extracts title and meta tags from elements that carry no
// visible text.
func (p *Parser) processHead(n *html.Node, result *ParseResult) {
	if n.Data != "head" {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			result.Title = collapseSpace(nodeText(c))
		case "meta":
			p.processMeta(c, result)
		}
	}
}

func (p *Parser) processMeta(n *html.Node, result *ParseResult) {
	name := strings.ToLower(getAttr(n, "name"))
	if name == "" {
		name = strings.ToLower(getAttr(n, "property"))
	}
	content := getAttr(n, "content")
	if name != "" && content != "" {
		result.MetaTags[name] = strings.TrimSpace(content)
	}
}

// processElement handles HTML element nodes in the body.
func (p *Parser) processElement(n *html.Node, result *ParseResult, addLink func(string)) {
	switch n.Data {
	case "title":
		if result.Title == "" {
			result.Title = collapseSpace(nodeText(n))
		}

	case "meta":
		p.processMeta(n, result)

	case "a", "area":
		addLink(p.resolveURL(getAttr(n, "href")))

	case "h1", "h2", "h3", "h4", "h5", "h6":
		if t := collapseSpace(nodeText(n)); t != "" {
			result.Headings = append(result.Headings, t)
		}

	case "form":
		form := model.Form{
			Action: p.resolveURL(getAttr(n, "action")),
			Method: strings.ToUpper(strings.TrimSpace(getAttr(n, "method"))),
		}
		if form.Method == "" {
			form.Method = "GET"
		}
		p.extractFormFields(n, &form)
		result.Forms = append(result.Forms, form)
		addLink(form.Action)

	case "img":
		src := p.resolveURL(getAttr(n, "src"))
		if src == "" {
			src = p.resolveURL(getAttr(n, "data-src"))
		}
		if src != "" {
			result.Images = append(result.Images, model.Image{
				Src:   src,
				Alt:   strings.TrimSpace(getAttr(n, "alt")),
				Title: strings.TrimSpace(getAttr(n, "title")),
			})
		}
	}
}

// extractFormFields recursively extracts controls and submit labels.
func (p *Parser) extractFormFields(n *html.Node, form *model.Form) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case htmlElementInput, htmlElementSelect, htmlElementTextarea:
			field := model.FormField{
				Name:        getAttr(n, "name"),
				ID:          getAttr(n, "id"),
				Type:        strings.ToLower(getAttr(n, "type")),
				Placeholder: getAttr(n, "placeholder"),
				Required:    hasAttr(n, "required"),
			}
			if field.Type == "" {
				switch n.Data {
				case htmlElementTextarea:
					field.Type = htmlElementTextarea
				case htmlElementSelect:
					field.Type = htmlElementSelect
				default:
					field.Type = "text"
				}
			}
			switch field.Type {
			case "submit", "button", "image":
				if label := strings.TrimSpace(getAttr(n, "value")); label != "" {
					form.SubmitLabels = append(form.SubmitLabels, label)
				}
			default:
				if field.Name != "" || field.ID != "" {
					form.Fields = append(form.Fields, field)
				}
			}
		case htmlElementButton:
			t := strings.ToLower(getAttr(n, "type"))
			if t == "" || t == "submit" {
				if label := collapseSpace(nodeText(n)); label != "" {
					form.SubmitLabels = append(form.SubmitLabels, label)
				}
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.extractFormFields(c, form)
	}
}

// resolveURL resolves a relative URL against the base URL and drops the
// fragment. Non-navigable schemes resolve to "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "sms:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// findBase returns the href of the first <base> element.
func findBase(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		return getAttr(n, "href")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBase(c); href != "" {
			return href
		}
	}
	return ""
}

// nodeText concatenates the text nodes under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		if n.Type == html.ElementNode && skippedTextElements[n.Data] && n.Data != "head" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// collapseSpace trims s and replaces whitespace runs with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether the attribute is present, even without a value.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
