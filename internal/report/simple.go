package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/telecheck/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
// Output is plain ASCII so it can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose adds excerpts, page types and failed pages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeScores(&sb, report)
	w.writeSummary(&sb, report)
	if w.verbose {
		w.writePageTypes(&sb, report)
	}
	w.writeFindings(&sb, report)
	w.writeRecommendations(&sb, report)
	if w.verbose {
		w.writeFailedPages(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with analysis information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                    TELEHEALTH COMPLIANCE REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:           %s\n", report.SiteURL)
	fmt.Fprintf(sb, "Analyzed:       %s\n", report.DateAnalyzed.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(sb, "Pages Analyzed: %d of %d crawled\n", report.PagesAnalyzed, report.PagesCrawled)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

// writeScores writes the overall and per-category scores.
func (w *SimpleWriter) writeScores(sb *strings.Builder, report *model.Report) {
	section(sb, "COMPLIANCE SCORES")

	fmt.Fprintf(sb, "  OVERALL:      %3d / 100\n\n", report.OverallScore)
	for _, cs := range report.CategoryScores {
		fmt.Fprintf(sb, "  %-12s  %3d / 100  (%d findings)\n", cs.Category, cs.Score, cs.Findings)
	}
	if report.PagesAnalyzed == 0 {
		sb.WriteString("\n  No pages were analyzed; scores are not meaningful.\n")
	}
	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	section(sb, "SEVERITY SUMMARY")

	s := report.Summary
	fmt.Fprintf(sb, "  CRITICAL: %d\n", s.Critical)
	fmt.Fprintf(sb, "  HIGH:     %d\n", s.High)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", s.Medium)
	fmt.Fprintf(sb, "  LOW:      %d\n", s.Low)
	fmt.Fprintf(sb, "  INFO:     %d\n", s.Info)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n\n", s.Total)
}

func (w *SimpleWriter) writePageTypes(sb *strings.Builder, report *model.Report) {
	counts := pageTypeCounts(report)
	if len(counts) == 0 && !w.showEmpty {
		return
	}
	section(sb, "PAGE TYPES")
	if len(counts) == 0 {
		sb.WriteString("  No pages classified\n\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-14s %d\n", pageTypeTitle(c.Type)+":", c.Count)
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.Report) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	section(sb, "FINDINGS")

	for _, severity := range model.Severities() {
		var findings []model.Finding
		for _, f := range report.Findings {
			if f.Severity == severity {
				findings = append(findings, f)
			}
		}
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(severity), severity)

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * [%s] %s\n", f.Category, f.Title)
		fmt.Fprintf(sb, "    Page:     %s\n", f.PageURL)
		if f.Match != "" {
			fmt.Fprintf(sb, "    Match:    %s\n", f.Match)
		}
		if w.verbose {
			if f.Excerpt != "" {
				fmt.Fprintf(sb, "    Excerpt:  %s\n", f.Excerpt)
			}
			fmt.Fprintf(sb, "    Location: %s\n", f.Location)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRecommendations(sb *strings.Builder, report *model.Report) {
	if len(report.Recommendations) == 0 && !w.showEmpty {
		return
	}
	section(sb, "RECOMMENDATIONS")
	if len(report.Recommendations) == 0 {
		sb.WriteString("  No recommendations\n\n")
		return
	}
	for i, rec := range report.Recommendations {
		fmt.Fprintf(sb, "  %d. [%s] %s\n", i+1, rec.Priority, rec.Text)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailedPages(sb *strings.Builder, report *model.Report) {
	if len(report.FailedPages) == 0 {
		return
	}
	section(sb, "FAILED PAGES")
	urls := make([]string, 0, len(report.FailedPages))
	for u := range report.FailedPages {
		urls = append(urls, u)
	}
	slices.Sort(urls)
	for _, u := range urls {
		fmt.Fprintf(sb, "  %s: %s\n", u, report.FailedPages[u])
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Findings are potential issues for human review, not legal advice.\n")
	sb.WriteString("https://github.com/nao1215/telecheck\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
