package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/telecheck/internal/classifier"
	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/crawler"
	"github.com/nao1215/telecheck/internal/fetcher"
	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/rules"
	"github.com/nao1215/telecheck/internal/scoring"
)

// AnalyzeOption configures AnalyzeSite.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	logger     *slog.Logger
	transport  http.RoundTripper
	classifier *classifier.Classifier
	engineOpts []rules.EngineOption
}

// WithAnalyzeLogger sets the logger used by every component.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeOption {
	return func(o *analyzeOptions) {
		o.logger = logger
	}
}

// WithTransport replaces the HTTP transport, for example to reach a test
// server with its own certificate.
func WithTransport(rt http.RoundTripper) AnalyzeOption {
	return func(o *analyzeOptions) {
		o.transport = rt
	}
}

// WithClassifier replaces the page classifier.
func WithClassifier(c *classifier.Classifier) AnalyzeOption {
	return func(o *analyzeOptions) {
		o.classifier = c
	}
}

// WithEngineOptions passes options to the rule engine, for example a
// custom rule set.
func WithEngineOptions(opts ...rules.EngineOption) AnalyzeOption {
	return func(o *analyzeOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// AnalyzeSite audits the site at siteURL and returns its report.
//
// Invalid configuration or an invalid URL fails with a *config.ConfigError
// before any request is sent. Fetch failures never fail the analysis:
// cancelling ctx or exceeding the crawl budget yields a report with
// Coverage.Partial set (see CoverageError). Callers must check
// PagesAnalyzed before trusting the scores.
func AnalyzeSite(ctx context.Context, siteURL string, cfg config.AnalysisConfig, opts ...AnalyzeOption) (*model.Report, error) {
	if err := config.ValidateSiteURL(siteURL); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &analyzeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	f, err := newFetcher(cfg, o)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := newAnalysisPipeline(f, cfg, o)
	if err != nil {
		return nil, err
	}

	a := NewAnalysis(siteURL, cfg)
	if err := p.Execute(ctx, a); err != nil {
		return nil, err
	}
	return a.Report, nil
}

func newFetcher(cfg config.AnalysisConfig, o *analyzeOptions) (*fetcher.Fetcher, error) {
	fopts := []fetcher.Option{
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithMaxRedirects(cfg.MaxRedirects),
		fetcher.WithProxy(cfg.ProxyURL),
		fetcher.WithCookie(cfg.Cookie),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithLogger(o.logger),
	}
	if cfg.MaxBodySize > 0 {
		fopts = append(fopts, fetcher.WithMaxBodySize(cfg.MaxBodySize))
	}
	if cfg.UserAgent != "" {
		fopts = append(fopts, fetcher.WithUserAgent(cfg.UserAgent))
	}
	if o.transport != nil {
		fopts = append(fopts, fetcher.WithTransport(o.transport))
	}
	f, err := fetcher.New(fopts...)
	if err != nil {
		return nil, &config.ConfigError{Field: "AnalysisConfig.ProxyURL", Err: fmt.Errorf("%w: %w", config.ErrInvalidProxy, err)}
	}
	return f, nil
}

// newAnalysisPipeline wires the six analysis steps.
func newAnalysisPipeline(f crawler.Fetcher, cfg config.AnalysisConfig, o *analyzeOptions) (*Pipeline, error) {
	spider, err := crawler.NewSpider(f,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithSameDomainOnly(cfg.SameDomainOnly),
		crawler.WithDelay(cfg.Delay),
		crawler.WithCrawlTimeout(cfg.CrawlTimeout()),
		crawler.WithExcludePatterns(cfg.ExcludePatterns),
		crawler.WithRespectRobots(cfg.RespectRobots),
		crawler.WithImageInspection(cfg.InspectImages, cfg.MaxImages),
		crawler.WithLogger(o.logger),
	)
	if err != nil {
		return nil, &config.ConfigError{Field: "AnalysisConfig.ExcludePatterns", Err: fmt.Errorf("%w: %w", config.ErrInvalidExcludePattern, err)}
	}

	engine, err := rules.NewEngine(append([]rules.EngineOption{rules.WithLogger(o.logger)}, o.engineOpts...)...)
	if err != nil {
		return nil, err
	}

	cls := o.classifier
	if cls == nil {
		cls = classifier.New()
	}

	p := New(WithLogger(o.logger))
	p.AddSteps(
		NewCrawlStep(spider, o.logger),
		NewClassifyStep(cls),
		NewEvaluateStep(engine),
		NewScoreStep(scoring.New(cfg.Weights)),
		NewRecommendStep(cfg.ScoreAdvisories),
		NewAssembleStep(),
	)
	return p, nil
}
