package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a single request including redirects.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRedirects is the redirect bound.
	DefaultMaxRedirects = 10

	// DefaultMaxBodySize bounds how much of a response body is read.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024
)

// Response is a successfully retrieved page.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Header contains the response headers.
	Header http.Header

	// ContentType is the media type without parameters, lower-cased.
	ContentType string

	// Body is the response body, truncated at the configured limit.
	Body []byte

	// Profile is the name of the header profile that got the response.
	Profile string
}

// Fetcher retrieves pages over HTTP(S).
type Fetcher struct {
	client      *http.Client
	transport   http.RoundTripper
	timeout     time.Duration
	maxRedirect int
	maxBodySize int64
	userAgent   string
	proxyURL    string
	cookie      string
	headers     map[string]string
	primary     Profile
	alternate   Profile
	retry       bool
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRedirects sets the redirect bound.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirect = n
	}
}

// WithMaxBodySize sets how many body bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithUserAgent overrides the User-Agent of both header profiles.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithProxy routes traffic through an http://, https:// or socks5:// proxy.
func WithProxy(proxyURL string) Option {
	return func(f *Fetcher) {
		f.proxyURL = proxyURL
	}
}

// WithCookie adds a raw cookie string to every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithTransport replaces the base transport. Proxy settings are ignored
// when a transport is supplied.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// WithProfiles replaces the primary and alternate header profiles.
func WithProfiles(primary, alternate Profile) Option {
	return func(f *Fetcher) {
		f.primary = primary
		f.alternate = alternate
	}
}

// WithRetry enables or disables the alternate-profile retry.
func WithRetry(enabled bool) Option {
	return func(f *Fetcher) {
		f.retry = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher. It fails only when the proxy URL is unusable.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     DefaultTimeout,
		maxRedirect: DefaultMaxRedirects,
		maxBodySize: DefaultMaxBodySize,
		primary:     ChromeProfile,
		alternate:   FirefoxProfile,
		retry:       true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	base := f.transport
	if base == nil {
		t, err := newTransport(f.proxyURL)
		if err != nil {
			return nil, err
		}
		base = t
	}
	if f.cookie != "" || len(f.headers) > 0 {
		base = &headerInjectingTransport{base: base, cookie: f.cookie, headers: f.headers}
	}

	maxRedirect := f.maxRedirect
	f.client = &http.Client{
		Transport: base,
		Timeout:   f.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirect {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
	return f, nil
}

// newTransport builds the base transport, optionally routed through a proxy.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", proxyURL)
	}
	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return transport, nil
}

// NormalizeURL parses raw as an http(s) URL, defaulting to https when the
// scheme is missing.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

// Fetch retrieves rawURL.
//
// On a non-2xx response Fetch returns the response together with a
// *FetchError of KindHTTP, so callers can still inspect status and headers
// and decide whether the failure is terminal. All other failures return a
// nil response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.do(ctx, target, f.primary)
	if !f.retry || ctx.Err() != nil || !shouldRetry(resp, err) {
		return resp, err
	}

	f.logger.Debug("retrying with alternate profile",
		"url", target,
		"profile", f.alternate.Name,
		"error", err,
	)
	return f.do(ctx, target, f.alternate)
}

// Close releases idle connections held by the fetcher.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func shouldRetry(resp *Response, err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	switch fetchErr.Kind {
	case KindNetwork:
		return true
	case KindHTTP:
		return resp != nil && retryableStatus(resp.StatusCode)
	default:
		return false
	}
}

func (f *Fetcher) do(ctx context.Context, target string, profile Profile) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	profile.apply(req, f.userAgent)

	httpResp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, newRedirectError(target, err)
		}
		return nil, newNetworkError(target, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxBodySize))
	if err != nil {
		return nil, newNetworkError(target, err)
	}

	resp := &Response{
		URL:         httpResp.Request.URL.String(),
		StatusCode:  httpResp.StatusCode,
		Header:      httpResp.Header,
		ContentType: mediaType(httpResp.Header.Get("Content-Type")),
		Body:        body,
		Profile:     profile.Name,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, newHTTPError(target, httpResp.StatusCode)
	}
	return resp, nil
}

// mediaType strips parameters from a Content-Type value.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
