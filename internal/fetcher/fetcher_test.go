package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNormalizeURL tests scheme defaulting and validation.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"missing scheme defaults to https", "example.com/shop", "https://example.com/shop", false},
		{"protocol relative", "//example.com", "https://example.com", false},
		{"http kept", "http://example.com", "http://example.com", false},
		{"upper case scheme", "HTTPS://example.com", "https://example.com", false},
		{"surrounding whitespace", "  example.com  ", "https://example.com", false},
		{"empty", "", "", true},
		{"ftp rejected", "ftp://example.com", "", true},
		{"no host", "https://", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeURL(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// TestFetch tests successful retrieval and header profiles.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and browser headers are sent", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Seen-UA", r.Header.Get("User-Agent"))
			w.Header().Set("X-Seen-Lang", r.Header.Get("Accept-Language"))
			_, _ = w.Write([]byte("<html><body>hello</body></html>"))
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(resp.Body), "hello") {
			t.Errorf("expected body to contain hello, got %q", resp.Body)
		}
		if resp.ContentType != "text/html" {
			t.Errorf("expected text/html, got %q", resp.ContentType)
		}
		gotUA := resp.Header.Get("X-Seen-UA")
		gotLang := resp.Header.Get("X-Seen-Lang")
		if !strings.Contains(gotUA, "Chrome") {
			t.Errorf("expected Chrome user agent, got %q", gotUA)
		}
		if gotLang != "en-US,en;q=0.5" {
			t.Errorf("expected en-US,en;q=0.5, got %q", gotLang)
		}
	})

	t.Run("body is truncated at limit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
		}))
		defer srv.Close()

		f, err := New(WithMaxBodySize(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 100 {
			t.Errorf("expected 100 bytes, got %d", len(resp.Body))
		}
	})

	t.Run("cookie and custom headers are injected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Seen-Cookie", r.Header.Get("Cookie"))
			w.Header().Set("X-Seen-Auth", r.Header.Get("Authorization"))
		}))
		defer srv.Close()

		f, err := New(
			WithCookie("session=abc"),
			WithHeaders(map[string]string{"Authorization": "Bearer token"}),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		gotCookie := resp.Header.Get("X-Seen-Cookie")
		gotAuth := resp.Header.Get("X-Seen-Auth")
		if gotCookie != "session=abc" {
			t.Errorf("expected session=abc, got %q", gotCookie)
		}
		if gotAuth != "Bearer token" {
			t.Errorf("expected Bearer token, got %q", gotAuth)
		}
	})
}

// TestFetchErrors tests the error taxonomy.
func TestFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-2xx returns response and HTTPError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Server", "nginx")
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL)
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if fetchErr.Kind != KindHTTP {
			t.Errorf("expected KindHTTP, got %s", fetchErr.Kind)
		}
		if fetchErr.StatusCode() != http.StatusNotFound {
			t.Errorf("expected 404, got %d", fetchErr.StatusCode())
		}
		if fetchErr.Reason() != "http 404" {
			t.Errorf("expected reason 'http 404', got %q", fetchErr.Reason())
		}
		if resp == nil || resp.Header.Get("Server") != "nginx" {
			t.Error("expected response with headers alongside the error")
		}
	})

	t.Run("redirect loop fails with too many redirects", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer srv.Close()

		f, err := New(WithMaxRedirects(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = f.Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrTooManyRedirects) {
			t.Fatalf("expected ErrTooManyRedirects, got %v", err)
		}
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.Kind != KindTooManyRedirects {
			t.Errorf("expected KindTooManyRedirects, got %v", err)
		}
	})

	t.Run("redirects within the bound are followed", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/final" {
				_, _ = w.Write([]byte("done"))
				return
			}
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
		}))
		defer srv.Close()

		f, err := New(WithMaxRedirects(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL+"/start")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(resp.URL, "/final") {
			t.Errorf("expected final URL, got %q", resp.URL)
		}
	})

	t.Run("connection refused is a network error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		addr := srv.URL
		srv.Close()

		f, err := New(WithRetry(false), WithTimeout(2*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = f.Fetch(context.Background(), addr)
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.Kind != KindNetwork {
			t.Errorf("expected KindNetwork, got %v", err)
		}
	})
}

// TestFetchRetry tests the alternate-profile retry.
func TestFetchRetry(t *testing.T) {
	t.Parallel()

	t.Run("blocked first attempt is retried with alternate profile", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if !strings.Contains(r.Header.Get("User-Agent"), "Firefox") {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte("welcome"))
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Profile != "firefox" {
			t.Errorf("expected firefox profile, got %q", resp.Profile)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("retries only once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = f.Fetch(context.Background(), srv.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("not found is not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		f, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, _ = f.Fetch(context.Background(), srv.URL)
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})
}

// TestNewProxy tests proxy URL handling.
func TestNewProxy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		proxy   string
		wantErr bool
	}{
		{"socks5", "socks5://127.0.0.1:9050", false},
		{"http", "http://127.0.0.1:8080", false},
		{"unsupported scheme", "ftp://127.0.0.1:21", true},
		{"missing host", "socks5://", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(WithProxy(tc.proxy))
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
