package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/telecheck/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown for sharing
// with compliance reviewers.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeScores(md, report)
	w.writeSummary(md, report)
	w.writePageTypes(md, report)
	w.writeFindings(md, report)
	w.writeRecommendations(md, report)
	w.writeFailedPages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with analysis information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Telehealth Compliance Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.SiteURL + "`"},
			{"Analyzed", report.DateAnalyzed.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Pages Analyzed", fmt.Sprintf("%d of %d crawled", report.PagesAnalyzed, report.PagesCrawled)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	w.writeCoverageAlert(md, report)
}

// writeCoverageAlert warns when the scores do not describe the whole site.
func (w *MarkdownWriter) writeCoverageAlert(md *markdown.Markdown, report *model.Report) {
	if !report.Coverage.Partial {
		return
	}
	switch report.Coverage.Reason {
	case model.CoverageNoPages:
		md.Caution("No pages could be fetched. Every category reads 100 because nothing was checked.")
	case model.CoveragePageLimit:
		md.Notef("The crawl stopped at the page limit after %d pages. Unvisited pages were not checked.", report.PagesCrawled)
	default:
		md.Warningf("The analysis did not finish (%s). Results cover %d pages only.", report.Coverage.Reason, report.PagesAnalyzed)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeScores(md *markdown.Markdown, report *model.Report) {
	md.H2("Compliance Scores")
	md.PlainText("")
	md.PlainTextf("**Overall: %d / 100**", report.OverallScore)
	md.PlainText("")

	rows := make([][]string, 0, len(report.CategoryScores))
	for _, cs := range report.CategoryScores {
		rows = append(rows, []string{
			string(cs.Category),
			scoreBadge(cs.Score) + " " + strconv.Itoa(cs.Score),
			strconv.Itoa(cs.Findings),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Score", "Findings"},
		Rows:   rows,
	})
	md.PlainText("")
}

func scoreBadge(score int) string {
	switch {
	case score >= 80:
		return "🟢"
	case score >= 60:
		return "🟡"
	default:
		return "🔴"
	}
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Severity Summary")
	md.PlainText("")

	s := report.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(s.Critical)},
			{"🟠 High", strconv.Itoa(s.High)},
			{"🟡 Medium", strconv.Itoa(s.Medium)},
			{"🔵 Low", strconv.Itoa(s.Low)},
			{"⚪ Info", strconv.Itoa(s.Info)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of findings per category.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Findings by Category"),
		piechart.WithShowData(true),
	)
	for _, cs := range report.CategoryScores {
		if cs.Findings > 0 {
			chart.LabelAndIntValue(string(cs.Category), uint64(cs.Findings))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	s := report.Summary
	switch {
	case s.Critical > 0:
		md.Cautionf("%d critical finding(s) need immediate review.", s.Critical)
	case s.High > 0:
		md.Warningf("%d high severity finding(s) are likely violations.", s.High)
	case s.Medium > 0:
		md.Importantf("%d medium severity finding(s) warrant review.", s.Medium)
	case s.Total > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No potential compliance issues detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePageTypes(md *markdown.Markdown, report *model.Report) {
	counts := pageTypeCounts(report)
	if len(counts) == 0 {
		return
	}
	md.H2("Pages")
	md.PlainText("")
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{pageTypeTitle(c.Type), strconv.Itoa(c.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page Type", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.Report) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No potential compliance issues detected.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "### 🔴 Critical",
		model.SeverityHigh:     "### 🟠 High",
		model.SeverityMedium:   "### 🟡 Medium",
		model.SeverityLow:      "### 🔵 Low",
		model.SeverityInfo:     "### ⚪ Info",
	}
	for _, sev := range model.Severities() {
		var findings []model.Finding
		for _, f := range report.Findings {
			if f.Severity == sev {
				findings = append(findings, f)
			}
		}
		if len(findings) == 0 {
			continue
		}
		md.PlainText(headers[sev])
		md.PlainText("")
		w.writeFindingsTable(md, findings, report.PageTypes)
	}
}

// writeFindingsTable writes a table of findings followed by their excerpts.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding, types map[string]model.PageType) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		match := f.Match
		if match == "" {
			match = "-"
		}
		pageType := "-"
		if pt, ok := types[f.PageURL]; ok {
			pageType = pageTypeTitle(pt)
		}
		rows[i] = []string{
			string(f.Category),
			f.Title,
			truncateString(match, 40),
			truncateString(f.PageURL, 60),
			pageType,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Rule", "Match", "Page", "Page Type"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Excerpt != "" {
			md.Details(f.Title+" ("+f.Location+")", f.Excerpt)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, report *model.Report) {
	if len(report.Recommendations) == 0 {
		return
	}
	md.H2("Recommendations")
	md.PlainText("")
	items := make([]string, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		items = append(items, fmt.Sprintf("**%s** %s", rec.Priority, rec.Text))
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailedPages(md *markdown.Markdown, report *model.Report) {
	if len(report.FailedPages) == 0 {
		return
	}
	urls := make([]string, 0, len(report.FailedPages))
	for u := range report.FailedPages {
		urls = append(urls, u)
	}
	slices.Sort(urls)

	rows := make([][]string, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, []string{truncateString(u, 80), report.FailedPages[u]})
	}
	md.H2("Failed Pages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Findings are potential issues for human review, not legal advice. Generated by [telecheck](https://github.com/nao1215/telecheck)*")
}
