package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/nao1215/telecheck/internal/classifier"
	"github.com/nao1215/telecheck/internal/crawler"
	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/recommend"
	"github.com/nao1215/telecheck/internal/rules"
	"github.com/nao1215/telecheck/internal/scoring"
)

// errNotCrawled is returned by steps that run before the crawl step.
var errNotCrawled = errors.New("no crawl result")

// Crawler is what CrawlStep needs. *crawler.Spider satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string) (*crawler.Result, error)
}

// statsReporter is implemented by crawlers that count their work.
type statsReporter interface {
	Stats() crawler.SpiderStats
}

// CrawlStep discovers and fetches the site's pages.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// ToleratesCancel reports that a cancelled crawl still returns a result.
func (s *CrawlStep) ToleratesCancel() bool { return true }

// Do crawls from a.SiteURL. Only an unusable seed is an error; a stopped
// crawl leaves a partial result.
func (s *CrawlStep) Do(ctx context.Context, a *Analysis) error {
	result, err := s.crawler.Crawl(ctx, a.SiteURL)
	if err != nil {
		return err
	}
	a.Crawl = result
	a.SiteURL = result.SeedURL

	s.logger.Info("crawl completed",
		"site", a.SiteURL,
		"pages", len(result.Pages),
		"succeeded", result.Succeeded(),
		"partial", result.Partial,
	)
	if sr, ok := s.crawler.(statsReporter); ok {
		stats := sr.Stats()
		s.logger.Debug("crawl stats",
			"site", a.SiteURL,
			"pages_visited", stats.PagesVisited,
			"urls_claimed", stats.URLsQueued,
		)
	}
	return nil
}

// ClassifyStep labels every successfully fetched page exactly once.
type ClassifyStep struct {
	classifier *classifier.Classifier
}

// NewClassifyStep creates a classify step.
func NewClassifyStep(c *classifier.Classifier) *ClassifyStep {
	return &ClassifyStep{classifier: c}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string { return "classify" }

// ToleratesCancel reports that the step runs after cancellation.
func (s *ClassifyStep) ToleratesCancel() bool { return true }

// Do fills a.PageTypes.
func (s *ClassifyStep) Do(_ context.Context, a *Analysis) error {
	if a.Crawl == nil {
		return errNotCrawled
	}
	a.PageTypes = s.classifier.ClassifyAll(a.Crawl.Pages)
	return nil
}

// EvaluateStep runs the rule engine.
type EvaluateStep struct {
	engine *rules.Engine
}

// NewEvaluateStep creates an evaluate step.
func NewEvaluateStep(e *rules.Engine) *EvaluateStep {
	return &EvaluateStep{engine: e}
}

// Name returns the step name.
func (s *EvaluateStep) Name() string { return "evaluate" }

// ToleratesCancel reports that the step runs after cancellation.
func (s *EvaluateStep) ToleratesCancel() bool { return true }

// Do fills a.Findings.
func (s *EvaluateStep) Do(_ context.Context, a *Analysis) error {
	if a.Crawl == nil {
		return errNotCrawled
	}
	a.Findings = s.engine.Evaluate(a.Crawl.Pages, a.PageTypes)
	return nil
}

// ScoreStep computes category and overall scores.
type ScoreStep struct {
	scorer *scoring.Scorer
}

// NewScoreStep creates a score step.
func NewScoreStep(s *scoring.Scorer) *ScoreStep {
	return &ScoreStep{scorer: s}
}

// Name returns the step name.
func (s *ScoreStep) Name() string { return "score" }

// ToleratesCancel reports that the step runs after cancellation.
func (s *ScoreStep) ToleratesCancel() bool { return true }

// Do fills a.OverallScore and a.CategoryScores.
func (s *ScoreStep) Do(_ context.Context, a *Analysis) error {
	a.OverallScore, a.CategoryScores = s.scorer.Score(a.Findings)
	return nil
}

// RecommendStep builds recommendations from the findings.
type RecommendStep struct {
	advisories bool
}

// NewRecommendStep creates a recommend step. With advisories enabled,
// low category scores add review recommendations.
func NewRecommendStep(advisories bool) *RecommendStep {
	return &RecommendStep{advisories: advisories}
}

// Name returns the step name.
func (s *RecommendStep) Name() string { return "recommend" }

// ToleratesCancel reports that the step runs after cancellation.
func (s *RecommendStep) ToleratesCancel() bool { return true }

// Do fills a.Recommendations.
func (s *RecommendStep) Do(_ context.Context, a *Analysis) error {
	var opts []recommend.Option
	if s.advisories {
		opts = append(opts, recommend.WithScoreAdvisories(a.CategoryScores))
	}
	a.Recommendations = recommend.BuildRecommendations(a.Findings, opts...)
	return nil
}

// AssembleStep builds the final report.
type AssembleStep struct {
	now func() time.Time
}

// NewAssembleStep creates an assemble step.
func NewAssembleStep() *AssembleStep {
	return &AssembleStep{now: time.Now}
}

// Name returns the step name.
func (s *AssembleStep) Name() string { return "assemble" }

// ToleratesCancel reports that the step runs after cancellation.
func (s *AssembleStep) ToleratesCancel() bool { return true }

// Do sets a.Report.
func (s *AssembleStep) Do(_ context.Context, a *Analysis) error {
	a.Report = Assemble(a, s.now())
	return nil
}

// Assemble combines the analysis state into a report. Findings are sorted
// by severity, category and URL. With no successfully fetched page the
// report carries every category at 100 and coverage no-pages.
func Assemble(a *Analysis, finished time.Time) *model.Report {
	findings := append([]model.Finding(nil), a.Findings...)
	model.SortFindings(findings)

	report := &model.Report{
		SiteURL:         a.SiteURL,
		DateAnalyzed:    a.Started,
		Duration:        finished.Sub(a.Started),
		OverallScore:    a.OverallScore,
		CategoryScores:  a.CategoryScores,
		Findings:        findings,
		Recommendations: a.Recommendations,
		PageTypes:       maps.Clone(a.PageTypes),
		FailedPages:     make(map[string]string),
		Summary:         model.Summarize(findings),
	}
	if report.Findings == nil {
		report.Findings = []model.Finding{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []model.Recommendation{}
	}
	if report.CategoryScores == nil {
		report.OverallScore, report.CategoryScores = scoring.Score(nil)
	}

	if a.Crawl != nil {
		report.PagesCrawled = len(a.Crawl.Pages)
		report.PagesAnalyzed = a.Crawl.Succeeded()
		report.Coverage = model.Coverage{Partial: a.Crawl.Partial, Reason: a.Crawl.Reason}
		for _, p := range a.Crawl.Pages {
			if !p.Succeeded() {
				report.FailedPages[p.URL] = p.FetchStatus.Reason
			}
		}
	}

	if report.PagesAnalyzed == 0 {
		report.Coverage.Partial = true
		if report.Coverage.Reason == model.CoverageComplete || report.Coverage.Reason == model.CoveragePageLimit {
			report.Coverage.Reason = model.CoverageNoPages
		}
	}
	return report
}
