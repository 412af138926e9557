// Package classifier labels crawled pages with a model.PageType.
//
// Signals are checked in priority order and the first match wins:
//
//  1. URL path segments (/blog/, /posts/ ... then /shop/, /product/ ...)
//  2. an add-to-cart form
//  3. legal paths (/privacy, /terms, /hipaa ...)
//  4. the site root
//  5. page structure: article/byline/date markup, or price text together
//     with a purchase form
//  6. Other
//
// Classification depends only on the page passed in, never on other pages
// or crawl order.
package classifier
