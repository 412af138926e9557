// Package fetcher retrieves single pages over HTTP(S).
//
// A Fetcher normalizes the target URL (a missing scheme defaults to https),
// follows a bounded number of redirects and identifies itself with a
// browser-like header profile. Sites that reject the first attempt with
// 403, 429 or 503, or that drop the connection, are retried once with an
// alternate profile. Every failure is reported as a *FetchError whose Kind
// is one of KindNetwork, KindHTTP or KindTooManyRedirects.
//
// A Fetcher keeps no state between calls apart from the pooled connections
// of its transport; there is no cookie jar.
//
// Traffic can be routed through an HTTP or SOCKS5 proxy with WithProxy.
package fetcher
