package fetcher

import (
	"errors"
	"fmt"
)

// Fetch errors.
var (
	// ErrNetwork is returned when the connection could not be established or
	// was interrupted (refused, reset, DNS failure, timeout).
	ErrNetwork = errors.New("network error")

	// ErrTooManyRedirects is returned when the redirect chain exceeds the
	// configured bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrInvalidURL is returned when the target cannot be parsed as an
	// http or https URL.
	ErrInvalidURL = errors.New("invalid URL")
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork covers connection, DNS and timeout failures.
	KindNetwork Kind = iota
	// KindHTTP covers non-2xx responses.
	KindHTTP
	// KindTooManyRedirects covers redirect chains longer than the bound.
	KindTooManyRedirects
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindTooManyRedirects:
		return "too many redirects"
	default:
		return "unknown"
	}
}

// HTTPError carries the status code of a non-2xx response.
type HTTPError struct {
	StatusCode int
}

// Error implements error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d", e.StatusCode)
}

// FetchError describes why a URL could not be fetched.
type FetchError struct {
	URL  string
	Kind Kind
	Err  error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Reason returns a short description suitable for a page record,
// e.g. "http 404", "too many redirects" or "network: <cause>".
func (e *FetchError) Reason() string {
	switch e.Kind {
	case KindHTTP:
		var httpErr *HTTPError
		if errors.As(e.Err, &httpErr) {
			return httpErr.Error()
		}
		return "http error"
	case KindTooManyRedirects:
		return ErrTooManyRedirects.Error()
	default:
		return fmt.Sprintf("network: %v", e.Err)
	}
}

// StatusCode returns the HTTP status of a KindHTTP failure, or 0.
func (e *FetchError) StatusCode() int {
	var httpErr *HTTPError
	if errors.As(e.Err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func newNetworkError(rawURL string, cause error) *FetchError {
	return &FetchError{URL: rawURL, Kind: KindNetwork, Err: fmt.Errorf("%w: %w", ErrNetwork, cause)}
}

func newHTTPError(rawURL string, status int) *FetchError {
	return &FetchError{URL: rawURL, Kind: KindHTTP, Err: &HTTPError{StatusCode: status}}
}

func newRedirectError(rawURL string, cause error) *FetchError {
	return &FetchError{URL: rawURL, Kind: KindTooManyRedirects, Err: cause}
}
