package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/telecheck/internal/model"
)

// ErrCrawlAborted marks a report whose crawl was cancelled or ran out of
// time. AnalyzeSite never returns it; use CoverageError to obtain it.
var ErrCrawlAborted = errors.New("crawl aborted")

// ErrNoPages marks a report without a single fetched page.
var ErrNoPages = errors.New("no page could be fetched")

// CoverageError explains why a report's coverage is partial, or returns nil
// for a complete report. A page-limit stop is not an error.
func CoverageError(report *model.Report) error {
	if report == nil || !report.Coverage.Partial {
		return nil
	}
	switch report.Coverage.Reason {
	case model.CoverageAborted, model.CoverageTimeout:
		return fmt.Errorf("%w: %s after %d pages", ErrCrawlAborted, report.Coverage.Reason, report.PagesCrawled)
	case model.CoverageNoPages:
		return ErrNoPages
	default:
		return nil
	}
}
