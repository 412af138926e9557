package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/crawler"
	"github.com/nao1215/telecheck/internal/model"
)

// Analysis is the working state passed through the steps. Each step
// fills in its part; AssembleStep turns it into the final Report.
type Analysis struct {
	// SiteURL is the seed as given, replaced by its canonical form once
	// the crawl has started.
	SiteURL string

	Config config.AnalysisConfig

	// Started is when the analysis began.
	Started time.Time

	Crawl           *crawler.Result
	PageTypes       map[string]model.PageType
	Findings        []model.Finding
	OverallScore    int
	CategoryScores  []model.CategoryScore
	Recommendations []model.Recommendation

	// Report is set by AssembleStep.
	Report *model.Report

	// Performed lists the names of the steps that ran.
	Performed []string
}

// NewAnalysis returns the initial state for siteURL.
func NewAnalysis(siteURL string, cfg config.AnalysisConfig) *Analysis {
	return &Analysis{
		SiteURL: siteURL,
		Config:  cfg,
		Started: time.Now(),
	}
}

// Pages returns the crawled pages, or nil before the crawl step.
func (a *Analysis) Pages() []*model.PageRecord {
	if a.Crawl == nil {
		return nil
	}
	return a.Crawl.Pages
}

// Step is one stage of an analysis.
type Step interface {
	// Do executes the step. An error stops the pipeline unless
	// WithContinueOnError is set.
	Do(ctx context.Context, a *Analysis) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// TolerantStep is implemented by steps that produce a usable result even
// when ctx is done: the pure transforms, and the crawl, which returns the
// pages gathered so far. The pipeline runs them after cancellation.
type TolerantStep interface {
	Step
	ToleratesCancel() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order. The context is checked before each
// step that is not a TolerantStep.
//
// Returns the first error if continueOnError is false.
func (p *Pipeline) Execute(ctx context.Context, a *Analysis) error {
	var firstErr error
	for _, step := range p.steps {
		if ctx.Err() != nil && !toleratesCancel(step) {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"site", a.SiteURL,
		)

		if err := step.Do(ctx, a); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"site", a.SiteURL,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		a.Performed = append(a.Performed, step.Name())
	}
	return firstErr
}

func toleratesCancel(step Step) bool {
	ts, ok := step.(TolerantStep)
	return ok && ts.ToleratesCancel()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
