package crawler

import (
	"fmt"
	"net/url"
	pathpkg "path"
	"strings"

	"github.com/gobwas/glob"
)

// CanonicalURL returns the form of rawURL used as the visited-set key and as
// the URL of page records: lower-case scheme and host, default port removed,
// empty path replaced by "/", trailing slash removed from non-root paths and
// fragment stripped. The query string is kept.
func CanonicalURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	u.RawPath = ""

	return u.String(), nil
}

// sameSite reports whether two hosts belong to the same site. A leading
// "www." is ignored so that example.com and www.example.com match.
func sameSite(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(a), "www."),
		strings.TrimPrefix(strings.ToLower(b), "www."))
}

// pathPattern is a compiled exclude pattern.
type pathPattern struct {
	raw string
	g   glob.Glob

	// prefix is set for "/dir/*" patterns, which also match "/dir" itself.
	prefix string

	// base is set for patterns without a slash, which match the last
	// path segment ("*.pdf" matches "/docs/file.pdf").
	base bool
}

// CompilePattern compiles a path glob. "*" does not cross "/", "**" does.
func CompilePattern(pattern string) (glob.Glob, error) {
	return glob.Compile(pattern, '/')
}

func compilePatterns(patterns []string) ([]pathPattern, error) {
	compiled := make([]pathPattern, 0, len(patterns))
	for _, raw := range patterns {
		g, err := CompilePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		pp := pathPattern{raw: raw, g: g, base: !strings.Contains(raw, "/")}
		if strings.HasSuffix(raw, "/*") || strings.HasSuffix(raw, "/**") {
			pp.prefix = strings.TrimRight(strings.TrimSuffix(strings.TrimSuffix(raw, "*"), "*"), "/")
		}
		compiled = append(compiled, pp)
	}
	return compiled, nil
}

func (p pathPattern) match(path string) bool {
	if p.g.Match(path) {
		return true
	}
	if p.prefix != "" && path == p.prefix {
		return true
	}
	if p.base {
		return p.g.Match(pathpkg.Base(path))
	}
	return false
}
