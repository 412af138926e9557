// Package pipeline runs one site analysis as a sequence of steps:
// crawl, classify, evaluate, score, recommend and assemble.
//
// Only the crawl step does I/O. The remaining steps are pure transforms
// over the materialized page set. All of them run even after the context
// is cancelled, so an aborted crawl still yields a report flagged as
// partial.
//
// AnalyzeSite is the entry point for a single site; BatchProcessor audits
// many sites with bounded concurrency using errgroup.
package pipeline
