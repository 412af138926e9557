package config

import (
	"errors"
	"fmt"
)

// Validation errors. Validate methods return them wrapped in *ConfigError
// for AnalysisConfig and bare for the CLI Config.
var (
	// ErrNoTarget is returned when no site URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one site URL")

	// ErrInvalidURL is returned for a site URL that cannot be parsed or
	// has no host.
	ErrInvalidURL = errors.New("invalid site URL")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidCrawlTimeout is returned when the crawl budget is negative.
	// Zero means no budget.
	ErrInvalidCrawlTimeout = errors.New("invalid crawl timeout: must be non-negative")

	// ErrInvalidExcludePattern is returned for a path glob that does not
	// compile.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")

	// ErrInvalidTimeout is returned when the per-request timeout is not
	// positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect bound is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Zero selects the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidDelay is returned when the request delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxImages is returned when the image limit is negative.
	ErrInvalidMaxImages = errors.New("invalid max images: must be non-negative")

	// ErrInvalidProxy is returned for a proxy URL that is not http, https
	// or socks5.
	ErrInvalidProxy = errors.New("invalid proxy URL: scheme must be http, https or socks5")

	// ErrInvalidWeights is returned for negative scoring weights.
	ErrInvalidWeights = errors.New("invalid scoring weights")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

// ConfigError reports the configuration field that failed validation.
// It is returned before any network activity starts.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

// Unwrap returns the sentinel error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
