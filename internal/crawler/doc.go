// Package crawler discovers and fetches the pages of a site.
//
// # Architecture
//
// The Spider walks the site breadth-first from a seed URL. Each depth level
// is fetched with a bounded number of concurrent requests before the next
// level starts. Links come from anchors and form actions; a link is in scope
// when it is on the seed's host (unless same-domain crawling is disabled),
// matches no exclude glob and, optionally, is allowed by robots.txt.
//
// Every URL is canonicalized before it enters the visited set (lower-case
// scheme and host, trailing slash and fragment removed), so no page is
// fetched twice even when it is reachable under several spellings or via a
// redirect.
//
// # Components
//
//   - Spider: coordinates the crawl and produces model.PageRecord values
//   - Parser: extracts visible text, headings, forms, images and links
//   - CanonicalURL: the visited-set key
//
// # Limits
//
// The crawl stops at MaxPages records (failed fetches count), at MaxDepth,
// when the frontier is empty, when the caller cancels, or when the crawl
// timeout expires. In the last two cases the pages gathered so far are
// returned with Result.Partial set.
//
// # Usage
//
//	spider, err := crawler.NewSpider(f, crawler.WithMaxDepth(2))
//	result, err := spider.Crawl(ctx, "clinic.example")
package crawler
