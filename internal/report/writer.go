package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/telecheck/internal/model"
)

// Writer writes a report in one format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)
}

// MultiWriter writes to multiple Writers in turn, stopping at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// pageTypeTitle returns "Product Page" for model.PageTypeProductPage.
func pageTypeTitle(pt model.PageType) string {
	return titleCaser.String(pt.Label())
}

// statusText describes the report's coverage.
func statusText(r *model.Report) string {
	if !r.Coverage.Partial {
		return "Complete"
	}
	switch r.Coverage.Reason {
	case model.CoverageAborted:
		return "Aborted (partial results)"
	case model.CoverageTimeout:
		return "Timed out (partial results)"
	case model.CoverageNoPages:
		return "No pages fetched (scores not meaningful)"
	case model.CoveragePageLimit:
		return "Page limit reached (partial results)"
	default:
		return "Partial"
	}
}

// pageTypeCounts counts analyzed pages per type in model.PageTypes order.
func pageTypeCounts(r *model.Report) []struct {
	Type  model.PageType
	Count int
} {
	counts := make(map[model.PageType]int, len(r.PageTypes))
	for _, pt := range r.PageTypes {
		counts[pt]++
	}
	var out []struct {
		Type  model.PageType
		Count int
	}
	for _, pt := range model.PageTypes() {
		if counts[pt] > 0 {
			out = append(out, struct {
				Type  model.PageType
				Count int
			}{pt, counts[pt]})
		}
	}
	return out
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
