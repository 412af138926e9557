package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/telecheck/internal/model"
)

// AnalyzeFunc audits one site. AnalyzeSite bound to a config is the usual
// implementation.
type AnalyzeFunc func(ctx context.Context, siteURL string) (*model.Report, error)

// BatchResult is the outcome for one site of a batch.
type BatchResult struct {
	SiteURL string
	Report  *model.Report
	Err     error
}

// BatchProcessor audits multiple sites concurrently.
type BatchProcessor struct {
	analyze     AnalyzeFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites audited at once.
// Non-positive values keep the default of 2.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that calls analyze per site.
func NewBatchProcessor(analyze AnalyzeFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyze:     analyze,
		concurrency: 2,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch audits sites with bounded concurrency. Results are
// index-aligned with sites. A failing site does not stop the others.
// Cancellation reaches every running analysis, which then returns its
// partial report; sites not started yet get ctx.Err().
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) []BatchResult {
	results := make([]BatchResult, len(sites))
	_ = bp.ProcessBatchWithCallback(ctx, sites, func(r BatchResult, index int) { //nolint:errcheck // errors are per result
		results[index] = r
	})
	return results
}

// ProcessBatchWithCallback audits sites and calls callback as each one
// completes. It returns ctx.Err() once all workers are done. The callback
// runs on the worker goroutine, so it must be safe
// for concurrent use unless it only touches its own index.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, sites []string, callback func(result BatchResult, index int)) error {
	bp.logger.Info("starting batch",
		"sites", len(sites),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(BatchResult{SiteURL: site, Err: err}, i)
				return nil
			}

			bp.logger.Info("auditing site",
				"site", site,
				"index", i+1,
				"total", len(sites),
			)
			report, err := bp.analyze(ctx, site)
			if err != nil {
				bp.logger.Warn("audit failed", "site", site, "error", err)
			}
			callback(BatchResult{SiteURL: site, Report: report, Err: err}, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	bp.logger.Info("batch complete",
		"sites", len(sites),
		"elapsed", time.Since(start),
	)
	return ctx.Err()
}
