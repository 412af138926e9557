package model

import "strings"

// FetchStatus records whether a page was retrieved.
// A failed page contributes no text, forms or images but is still part of
// the crawl result so that it counts toward the page limit.
type FetchStatus struct {
	// OK is true when the page was fetched with a 2xx response.
	OK bool `json:"ok"`

	// Reason describes the failure, e.g. "http 404" or "network: dial tcp ...".
	Reason string `json:"reason,omitempty"`
}

// PageRecord represents a fetched page with all extracted information.
// Records are created by the crawler and are not modified after the crawl
// returns them.
type PageRecord struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Depth is the link distance from the seed URL (seed = 0).
	Depth int `json:"depth"`

	// StatusCode is the HTTP status of the final response, 0 on network failure.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the media type of the response without parameters.
	ContentType string `json:"content_type,omitempty"`

	// Headers contains the HTTP response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// HTML is the raw markup, bounded by the configured body size.
	HTML string `json:"-"`

	// TextContent is the visible text, whitespace-collapsed.
	TextContent string `json:"text_content,omitempty"`

	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string `json:"meta_description,omitempty"`

	// Headings contains the text of h1-h6 elements in document order.
	Headings []string `json:"headings,omitempty"`

	// Forms contains all forms in document order.
	Forms []Form `json:"forms,omitempty"`

	// Images contains all <img> elements in document order.
	Images []Image `json:"images,omitempty"`

	// Links contains resolved absolute URLs discovered on the page.
	Links []string `json:"links,omitempty"`

	// FetchStatus records success or the failure reason.
	FetchStatus FetchStatus `json:"fetch_status"`
}

// Form represents an HTML form element.
type Form struct {
	// Action is the resolved absolute action URL; empty means the page itself.
	Action string `json:"action,omitempty"`

	// Method is the upper-cased HTTP method. Defaults to GET.
	Method string `json:"method"`

	// Fields contains input, select and textarea controls.
	Fields []FormField `json:"fields,omitempty"`

	// SubmitLabels contains the visible text of submit buttons.
	SubmitLabels []string `json:"submit_labels,omitempty"`
}

// FormField represents a single form control.
type FormField struct {
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Image represents an <img> element.
type Image struct {
	// Src is the resolved absolute image URL.
	Src string `json:"src"`

	// Alt is the alt text.
	Alt string `json:"alt,omitempty"`

	// Title is the title attribute.
	Title string `json:"title,omitempty"`

	// Metadata holds EXIF tags extracted when image inspection is enabled.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewFailedPage returns a record for a page that could not be fetched.
func NewFailedPage(url string, depth, statusCode int, reason string) *PageRecord {
	return &PageRecord{
		URL:         url,
		Depth:       depth,
		StatusCode:  statusCode,
		FetchStatus: FetchStatus{OK: false, Reason: reason},
	}
}

// Succeeded reports whether the page was fetched.
func (p *PageRecord) Succeeded() bool {
	return p.FetchStatus.OK
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *PageRecord) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML returns true if the page content type indicates HTML.
// An empty content type is treated as HTML because many servers omit it.
func (p *PageRecord) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return ct == "" || ct == "text/html" || ct == "application/xhtml+xml"
}

// IsSecure reports whether the page was served over HTTPS.
func (p *PageRecord) IsSecure() bool {
	return strings.HasPrefix(strings.ToLower(p.URL), "https://")
}
