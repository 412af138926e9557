package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/telecheck/internal/fetcher"
	"github.com/nao1215/telecheck/internal/model"
)

// Default crawl limits.
const (
	DefaultMaxPages    = 50
	DefaultMaxDepth    = 3
	DefaultConcurrency = 4
)

// Fetcher retrieves a single URL. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// Result is the outcome of a crawl.
type Result struct {
	// SeedURL is the canonical seed URL.
	SeedURL string

	// Pages contains one record per fetched URL, failures included, in
	// breadth-first order.
	Pages []*model.PageRecord

	// Partial is true when the crawl stopped before exhausting its frontier
	// within the depth limit.
	Partial bool

	// Reason tells why the crawl stopped early.
	Reason model.CoverageReason
}

// Succeeded returns the number of successfully fetched pages.
func (r *Result) Succeeded() int {
	n := 0
	for _, p := range r.Pages {
		if p.Succeeded() {
			n++
		}
	}
	return n
}

// Spider crawls a site breadth-first.
//
// Each depth level is fetched completely, with up to concurrency requests
// in flight, before the next level starts. Which pages are kept when the
// page limit cuts a level short depends only on discovery order.
type Spider struct {
	fetcher Fetcher

	maxDepth       int
	maxPages       int
	concurrency    int
	sameDomainOnly bool
	delay          time.Duration
	timeout        time.Duration
	respectRobots  bool
	inspectImages  bool
	maxImages      int
	maxImageSize   int64

	excludePatterns []string
	excludes        []pathPattern

	logger *slog.Logger

	// visited is keyed by canonical URL. Workers add redirect targets
	// concurrently, so every access goes through mutex.
	visited map[string]bool
	mutex   sync.Mutex

	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of page records, failures included.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithConcurrency sets how many fetches run at once within a depth level.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithSameDomainOnly restricts the crawl to the seed's host.
func WithSameDomainOnly(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.sameDomainOnly = enabled
	}
}

// WithDelay sets a politeness delay before each request.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithCrawlTimeout sets the wall-clock budget of the crawl. When it runs
// out the crawl stops and returns what it has. Zero means no budget.
func WithCrawlTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithExcludePatterns sets URL path globs to skip (e.g. "/admin/**", "*.pdf").
func WithExcludePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.excludePatterns = patterns
	}
}

// WithRespectRobots makes the spider honor robots.txt rules for "*".
func WithRespectRobots(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.respectRobots = enabled
	}
}

// WithImageInspection downloads up to maxImages same-site images after the
// crawl and attaches their EXIF metadata to the page records.
func WithImageInspection(enabled bool, maxImages int) SpiderOption {
	return func(s *Spider) {
		s.inspectImages = enabled
		s.maxImages = maxImages
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider that fetches through f.
func NewSpider(f Fetcher, opts ...SpiderOption) (*Spider, error) {
	s := &Spider{
		fetcher:        f,
		maxDepth:       DefaultMaxDepth,
		maxPages:       DefaultMaxPages,
		concurrency:    DefaultConcurrency,
		sameDomainOnly: true,
		maxImages:      20,
		maxImageSize:   5 * 1024 * 1024,
		logger:         slog.Default(),
		visited:        make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.concurrency < 1 {
		s.concurrency = 1
	}
	excludes, err := compilePatterns(s.excludePatterns)
	if err != nil {
		return nil, err
	}
	s.excludes = excludes

	return s, nil
}

// Crawl fetches the site starting at seedURL.
//
// The crawl never fails because of individual pages: failed fetches are
// recorded in the result. Cancelling ctx or exceeding the crawl timeout
// stops issuing new requests and returns the pages gathered so far with
// Partial set. An error is returned only for an unusable seed URL.
func (s *Spider) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	normalized, err := fetcher.NormalizeURL(seedURL)
	if err != nil {
		return nil, err
	}
	seed, err := CanonicalURL(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fetcher.ErrInvalidURL, err)
	}
	seedParsed, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fetcher.ErrInvalidURL, err)
	}

	s.Reset()

	crawlCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := &Result{SeedURL: seed, Pages: make([]*model.PageRecord, 0)}

	var robots *robotsRules
	if s.respectRobots {
		robots = s.loadRobots(crawlCtx, seedParsed)
	}

	s.markVisited(seed)
	frontier := []string{seed}

	for depth := 0; depth <= s.maxDepth && len(frontier) > 0; depth++ {
		if crawlCtx.Err() != nil {
			break
		}

		remaining := s.maxPages - len(result.Pages)
		if remaining <= 0 {
			result.Partial = true
			result.Reason = model.CoveragePageLimit
			break
		}
		if len(frontier) > remaining {
			frontier = frontier[:remaining]
			result.Partial = true
			result.Reason = model.CoveragePageLimit
		}

		s.logger.Debug("crawling depth level", "depth", depth, "urls", len(frontier))
		records := s.fetchLevel(crawlCtx, frontier, depth)

		next := make([]string, 0)
		for _, rec := range records {
			if rec == nil {
				continue
			}
			result.Pages = append(result.Pages, rec)
			s.incPageCount()

			if depth == s.maxDepth {
				continue
			}
			for _, link := range rec.Links {
				canonical, ok := s.inScope(seedParsed, link, robots)
				if !ok {
					continue
				}
				if s.claim(canonical) {
					next = append(next, canonical)
				}
			}
		}
		frontier = next
	}

	if err := crawlCtx.Err(); err != nil {
		result.Partial = true
		if ctx.Err() != nil {
			result.Reason = model.CoverageAborted
		} else {
			result.Reason = model.CoverageTimeout
		}
		s.logger.Info("crawl stopped early",
			"reason", string(result.Reason),
			"pages", len(result.Pages),
		)
	}

	if s.inspectImages && crawlCtx.Err() == nil {
		s.inspectPageImages(crawlCtx, seedParsed, result.Pages)
	}

	return result, nil
}

// fetchLevel fetches all URLs of one depth level concurrently. The returned
// slice is index-aligned with urls; entries are nil for URLs that were not
// fetched because the crawl was stopped, or that redirected to a page
// another worker already holds.
func (s *Spider) fetchLevel(ctx context.Context, urls []string, depth int) []*model.PageRecord {
	records := make([]*model.PageRecord, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if s.delay > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(s.delay):
				}
			}
			records[i] = s.fetchPage(ctx, u, depth)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	return records
}

// fetchPage fetches and parses one page. It returns nil when the fetch was
// interrupted by cancellation or the final URL after redirects duplicates a
// page that is already claimed.
func (s *Spider) fetchPage(ctx context.Context, pageURL string, depth int) *model.PageRecord {
	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil && ctx.Err() != nil {
		return nil
	}

	if err != nil {
		var fetchErr *fetcher.FetchError
		reason := err.Error()
		status := 0
		if errors.As(err, &fetchErr) {
			reason = fetchErr.Reason()
			status = fetchErr.StatusCode()
		}
		s.logger.Debug("fetch failed", "url", pageURL, "reason", reason)

		rec := model.NewFailedPage(pageURL, depth, status, reason)
		if resp != nil {
			rec.Headers = resp.Header
			rec.ContentType = resp.ContentType
		}
		return rec
	}

	finalURL := pageURL
	if canonical, err := CanonicalURL(resp.URL); err == nil && canonical != pageURL {
		if !s.claim(canonical) {
			s.logger.Debug("redirect target already visited", "url", pageURL, "target", canonical)
			return nil
		}
		finalURL = canonical
	}

	rec := &model.PageRecord{
		URL:         finalURL,
		Depth:       depth,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Headers:     resp.Header,
		FetchStatus: model.FetchStatus{OK: true},
	}
	if !rec.IsHTML() {
		return rec
	}

	rec.HTML = string(resp.Body)
	parser, err := NewParser(finalURL)
	if err != nil {
		return rec
	}
	parsed, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		s.logger.Debug("parse failed", "url", finalURL, "error", err)
		return rec
	}

	rec.Title = parsed.Title
	rec.MetaDescription = parsed.MetaDescription
	rec.TextContent = parsed.Text
	rec.Headings = parsed.Headings
	rec.Forms = parsed.Forms
	rec.Images = parsed.Images
	rec.Links = parsed.Links
	return rec
}

// inScope canonicalizes link and reports whether it may be crawled.
func (s *Spider) inScope(seed *url.URL, link string, robots *robotsRules) (string, bool) {
	canonical, err := CanonicalURL(link)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if s.sameDomainOnly && !sameSite(u.Hostname(), seed.Hostname()) {
		return "", false
	}
	if !s.shouldCrawl(u.Path) {
		return "", false
	}
	if robots != nil && !robots.allowed(u) {
		return "", false
	}
	return canonical, true
}

// shouldCrawl checks a path against the exclude patterns.
func (s *Spider) shouldCrawl(path string) bool {
	for _, p := range s.excludes {
		if p.match(path) {
			return false
		}
	}
	return true
}

// claim marks a URL as visited. It returns false if it was already visited.
func (s *Spider) claim(canonical string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.visited[canonical] {
		return false
	}
	s.visited[canonical] = true
	return true
}

// markVisited marks a URL as visited.
func (s *Spider) markVisited(canonical string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[canonical] = true
}

func (s *Spider) incPageCount() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pageCount++
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesVisited: s.pageCount,
		URLsQueued:   len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of page records produced.
	PagesVisited int

	// URLsQueued is the number of unique URLs claimed.
	URLsQueued int
}
