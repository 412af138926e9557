package fetcher

import "net/http"

// Profile is a set of request headers that makes the fetcher look like a
// regular browser.
type Profile struct {
	Name    string
	Headers map[string]string
}

// ChromeProfile is the primary header profile.
var ChromeProfile = Profile{
	Name: "chrome",
	Headers: map[string]string{
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Referer":                   "https://www.google.com/",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
	},
}

// FirefoxProfile is used for the single retry after a blocked attempt.
// It drops the Referer and presents a first-party visitor cookie, which gets
// past simple bot walls that key on a missing cookie.
var FirefoxProfile = Profile{
	Name: "firefox",
	Headers: map[string]string{
		"User-Agent":                "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Cookie":                    "visited=1",
	},
}

// apply sets the profile headers on req. A non-empty userAgent replaces the
// profile's User-Agent.
func (p Profile) apply(req *http.Request, userAgent string) {
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
}

// retryableStatus reports whether a status suggests bot mitigation that a
// different profile may get past.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
