package crawler

import (
	"context"
	"errors"
	"net/url"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/telecheck/internal/fetcher"
)

// robotsAgent is the robots.txt group the spider follows.
const robotsAgent = "*"

// robotsRules wraps the parsed robots.txt group for the spider.
type robotsRules struct {
	group *robotstxt.Group
}

// loadRobots fetches and parses robots.txt for the seed's origin.
// Any failure to retrieve it allows everything; 5xx responses disallow
// everything, following the robots.txt convention.
func (s *Spider) loadRobots(ctx context.Context, seed *url.URL) *robotsRules {
	robotsURL := (&url.URL{Scheme: seed.Scheme, Host: seed.Host, Path: "/robots.txt"}).String()

	resp, err := s.fetcher.Fetch(ctx, robotsURL)
	var fetchErr *fetcher.FetchError
	if err != nil && (!errors.As(err, &fetchErr) || fetchErr.Kind != fetcher.KindHTTP || resp == nil) {
		s.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		s.logger.Debug("robots.txt unparsable", "url", robotsURL, "error", err)
		return nil
	}
	return &robotsRules{group: data.FindGroup(robotsAgent)}
}

// allowed reports whether the robots rules permit fetching u.
func (r *robotsRules) allowed(u *url.URL) bool {
	if r == nil || r.group == nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.group.Test(path)
}
