package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/database"
	"github.com/nao1215/telecheck/internal/model"
)

const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noFindingsMessage  = "No findings"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [site]",
		Short: "Compare audit results with earlier runs",
		Long: `Compare displays differences between the latest and an earlier audit of a site.

Reports saved by 'telecheck scan' are read from the history database and
compared:
- New findings that appeared since the earlier run
- Resolved findings that are no longer present
- Changes in category scores and severity counts

Findings are matched by rule, page and location, so a finding on a page that
moved counts as resolved plus new.

Examples:
  # Compare the latest two audits of a site
  telecheck compare clinic.example

  # List the audit history of a site
  telecheck compare --list clinic.example

  # Compare with a specific audit by ID
  telecheck compare --with-id 5 clinic.example

  # Compare with the first audit on or after a date
  telecheck compare --since 2026-01-01 clinic.example

  # Show how the HIPAA score developed over time
  telecheck compare --trend HIPAA clinic.example

  # List all audited sites
  telecheck compare --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List the audit history of the site")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all audited sites in the database")
	cmd.Flags().String("trend", "",
		"Show the score history of one category (HIPAA, FDA, LegitScript, FTC, Technical)")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific report by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first report on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// compareOptions holds the parsed compare flags.
type compareOptions struct {
	site      string
	listSites bool
	list      bool
	trend     string
	withID    int64
	since     string
	json      bool
	markdown  bool
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseCompareFlags(cmd, args)
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runCompare(cmd.Context(), db, opts, cmd.OutOrStdout())
}

// parseCompareFlags validates the flags before the database is opened.
func parseCompareFlags(cmd *cobra.Command, args []string) (compareOptions, error) {
	var (
		opts compareOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.trend, err = flags.GetString("trend"); err != nil {
		return opts, err
	}
	if opts.withID, err = flags.GetInt64("with-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	if opts.withID != 0 && opts.since != "" {
		return opts, errors.New("--with-id and --since cannot be used together")
	}
	if opts.listSites {
		return opts, nil
	}
	if len(args) == 0 {
		return opts, errors.New("site is required (use --list-sites to see audited sites)")
	}
	if err := config.ValidateSiteURL(args[0]); err != nil {
		return opts, err
	}
	opts.site = config.SiteKey(args[0])

	if opts.trend != "" && !model.Category(opts.trend).Valid() {
		return opts, fmt.Errorf("unknown category %q", opts.trend)
	}
	return opts, nil
}

// runCompare dispatches to the listing, trend or comparison output.
func runCompare(ctx context.Context, db *database.HistoryDB, opts compareOptions, out io.Writer) error {
	switch {
	case opts.listSites:
		return listSites(ctx, db, out)
	case opts.list:
		return listHistory(ctx, db, opts.site, out)
	case opts.trend != "":
		return showTrend(ctx, db, opts.site, model.Category(opts.trend), out)
	}

	result, err := buildComparison(ctx, db, opts)
	if err != nil {
		return err
	}
	switch {
	case opts.json:
		return outputComparisonJSON(result, out)
	case opts.markdown:
		return outputComparisonMarkdown(result, out)
	default:
		return outputComparisonText(result, out)
	}
}

func listSites(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No audited sites found in the database.")
		fmt.Fprintln(out, "\nUse 'telecheck scan <url>' to audit a site.")
		return nil
	}

	fmt.Fprintf(out, "Audited sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'telecheck compare --list <site>' to see the audit history of a site.")
	return nil
}

func listHistory(ctx context.Context, db *database.HistoryDB, site string, out io.Writer) error {
	history, err := db.GetHistoryWithMetadata(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", site)
		fmt.Fprintln(out, "\nUse 'telecheck scan' to audit this site.")
		return nil
	}

	fmt.Fprintf(out, "Audit history for %s (%d reports):\n\n", site, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-7s  %-6s  %s\n", "ID", "Date", "Overall", "Pages", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	for _, meta := range history {
		pages := strconv.Itoa(meta.PagesAnalyzed)
		if meta.Partial {
			pages += "*"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-7d  %-6s  %s\n",
			meta.ID,
			meta.AnalyzedAt.Format("2006-01-02 15:04:05"),
			meta.OverallScore,
			pages,
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\n* partial coverage")
	fmt.Fprintln(out, "Use 'telecheck compare <site>' to compare the latest two reports.")
	fmt.Fprintln(out, "Use 'telecheck compare --with-id <id> <site>' to compare with a specific report.")
	return nil
}

func showTrend(ctx context.Context, db *database.HistoryDB, site string, category model.Category, out io.Writer) error {
	points, err := db.GetScoreTrend(ctx, site, category)
	if err != nil {
		return fmt.Errorf("failed to get score trend: %w", err)
	}
	if len(points) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", site)
		return nil
	}

	fmt.Fprintf(out, "%s score history for %s:\n\n", category, site)
	fmt.Fprintf(out, "  %-6s  %-20s  %-5s  %-8s  %s\n", "ID", "Date", "Score", "Findings", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 56))
	for i, p := range points {
		change := "-"
		if i > 0 {
			change = formatDelta(p.Score - points[i-1].Score)
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-5d  %-8d  %s\n",
			p.ReportID, p.AnalyzedAt.Format("2006-01-02 15:04:05"), p.Score, p.Findings, change)
	}
	return nil
}

// formatSummary formats severity counts as e.g. "C:1 H:2".
func formatSummary(s model.Summary) string {
	var parts []string
	for _, c := range []struct {
		label string
		count int
	}{
		{"C", s.Critical}, {"H", s.High}, {"M", s.Medium}, {"L", s.Low}, {"I", s.Info},
	} {
		if c.count > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", c.label, c.count))
		}
	}
	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// buildComparison selects the two reports and compares them. The latest
// report is always the current one.
func buildComparison(ctx context.Context, db *database.HistoryDB, opts compareOptions) (*ComparisonResult, error) {
	reports, err := db.GetHistory(ctx, opts.site)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no audit history found for %s", opts.site)
	}
	if len(reports) < 2 && opts.withID == 0 && opts.since == "" {
		return nil, fmt.Errorf("at least 2 reports are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.Report

	switch {
	case opts.withID > 0:
		previous, err = db.GetReportByID(ctx, opts.withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get report with ID %d: %w", opts.withID, err)
		}
		if got := config.SiteKey(previous.SiteURL); got != opts.site {
			return nil, fmt.Errorf("report ID %d belongs to %s, not %s", opts.withID, got, opts.site)
		}
	case opts.since != "":
		date, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Newest first, so walk backwards to find the oldest match.
		for i := len(reports) - 1; i >= 0; i-- {
			if !reports[i].DateAnalyzed.Before(date) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return nil, fmt.Errorf("no reports found since %s", opts.since)
		}
		if previous == current {
			return nil, fmt.Errorf("only one report found since %s; at least 2 reports are required for comparison", opts.since)
		}
	default:
		previous = reports[1]
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two reports of one site.
type ComparisonResult struct {
	Site string `json:"site"`

	Previous ReportSnapshot `json:"previous"`
	Current  ReportSnapshot `json:"current"`

	// NewFindings are present in the current report only.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings are present in the previous report only.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	UnchangedCount int `json:"unchanged_count"`

	// ScoreChanges lists every category in report order.
	ScoreChanges []ScoreChange `json:"score_changes"`

	Change Change `json:"change"`
}

// ReportSnapshot is the part of a report shown in a comparison.
type ReportSnapshot struct {
	DateAnalyzed  time.Time     `json:"date_analyzed"`
	PagesAnalyzed int           `json:"pages_analyzed"`
	Partial       bool          `json:"partial"`
	OverallScore  int           `json:"overall_score"`
	Summary       model.Summary `json:"summary"`
}

// ScoreChange is the score of one category in both reports.
type ScoreChange struct {
	Category model.Category `json:"category"`
	Previous int            `json:"previous"`
	Current  int            `json:"current"`
	Delta    int            `json:"delta"`
}

// Change describes the overall movement between the two reports.
type Change struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	OverallDelta  int `json:"overall_delta"`
	CriticalDelta int `json:"critical_delta"`
	HighDelta     int `json:"high_delta"`
	MediumDelta   int `json:"medium_delta"`
	LowDelta      int `json:"low_delta"`
	InfoDelta     int `json:"info_delta"`
}

func snapshot(r *model.Report) ReportSnapshot {
	return ReportSnapshot{
		DateAnalyzed:  r.DateAnalyzed,
		PagesAnalyzed: r.PagesAnalyzed,
		Partial:       r.Coverage.Partial,
		OverallScore:  r.OverallScore,
		Summary:       model.Summarize(r.Findings),
	}
}

// compareReports diffs two reports. Findings are matched by ID.
func compareReports(previous, current *model.Report) *ComparisonResult {
	result := &ComparisonResult{
		Site:     config.SiteKey(current.SiteURL),
		Previous: snapshot(previous),
		Current:  snapshot(current),
	}

	previousIDs := make(map[string]struct{}, len(previous.Findings))
	for _, f := range previous.Findings {
		previousIDs[f.ID] = struct{}{}
	}
	currentIDs := make(map[string]struct{}, len(current.Findings))
	for _, f := range current.Findings {
		currentIDs[f.ID] = struct{}{}
		if _, ok := previousIDs[f.ID]; !ok {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for _, f := range previous.Findings {
		if _, ok := currentIDs[f.ID]; ok {
			result.UnchangedCount++
		} else {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}
	model.SortFindings(result.NewFindings)
	model.SortFindings(result.ResolvedFindings)

	for _, c := range model.Categories() {
		p, cur := previous.ScoreFor(c), current.ScoreFor(c)
		result.ScoreChanges = append(result.ScoreChanges, ScoreChange{
			Category: c, Previous: p, Current: cur, Delta: cur - p,
		})
	}

	result.Change = calculateChange(result.Previous, result.Current)
	return result
}

// calculateChange compares overall scores. On equal scores the weighted
// severity counts decide, so that new low-severity findings still show.
func calculateChange(previous, current ReportSnapshot) Change {
	ps, cs := previous.Summary, current.Summary
	change := Change{
		OverallDelta:  current.OverallScore - previous.OverallScore,
		CriticalDelta: cs.Critical - ps.Critical,
		HighDelta:     cs.High - ps.High,
		MediumDelta:   cs.Medium - ps.Medium,
		LowDelta:      cs.Low - ps.Low,
		InfoDelta:     cs.Info - ps.Info,
	}

	risk := change.CriticalDelta*100 + change.HighDelta*50 + change.MediumDelta*10 + change.LowDelta*5 + change.InfoDelta
	switch {
	case change.OverallDelta > 0:
		change.Direction = directionImproved
	case change.OverallDelta < 0:
		change.Direction = directionWorsened
	case risk < 0:
		change.Direction = directionImproved
	case risk > 0:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}
	return change
}

func outputComparisonJSON(result *ComparisonResult, out io.Writer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(result *ComparisonResult, out io.Writer) error {
	md := markdown.NewMarkdown(out)

	md.H1("Audit Comparison: " + result.Site)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Change.Direction))
	md.PlainText("")

	prev, cur := result.Previous, result.Current
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", prev.DateAnalyzed.Format("2006-01-02 15:04"), cur.DateAnalyzed.Format("2006-01-02 15:04"), "-"},
			{"Pages", strconv.Itoa(prev.PagesAnalyzed), strconv.Itoa(cur.PagesAnalyzed), formatDelta(cur.PagesAnalyzed - prev.PagesAnalyzed)},
			{"**Overall**", strconv.Itoa(prev.OverallScore), strconv.Itoa(cur.OverallScore), "**" + formatDelta(result.Change.OverallDelta) + "**"},
		},
	})
	md.PlainText("")

	if prev.Partial || cur.Partial {
		md.Warning("At least one report has partial coverage. Differences may come from pages that were not checked.")
		md.PlainText("")
	}

	md.H2("Category Scores")
	md.PlainText("")
	rows := make([][]string, 0, len(result.ScoreChanges))
	for _, sc := range result.ScoreChanges {
		rows = append(rows, []string{string(sc.Category), strconv.Itoa(sc.Previous), strconv.Itoa(sc.Current), formatDelta(sc.Delta)})
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Previous", "Current", "Change"}, Rows: rows})
	md.PlainText("")

	md.H2("Findings by Severity")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Previous", "Current", "Change"},
		Rows:   severityRows(result),
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.NewFindings))
		for _, f := range result.NewFindings {
			items = append(items, fmt.Sprintf("**[%s]** %s: `%s` (%s)", f.Severity, f.Title, f.Match, f.PageURL))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			items = append(items, fmt.Sprintf("~~**[%s]** %s (%s)~~", f.Severity, f.Title, f.PageURL))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// severityRows returns one row per severity plus the total.
func severityRows(result *ComparisonResult) [][]string {
	ps, cs, ch := result.Previous.Summary, result.Current.Summary, result.Change
	rows := [][]string{
		{"Critical", strconv.Itoa(ps.Critical), strconv.Itoa(cs.Critical), formatDelta(ch.CriticalDelta)},
		{"High", strconv.Itoa(ps.High), strconv.Itoa(cs.High), formatDelta(ch.HighDelta)},
		{"Medium", strconv.Itoa(ps.Medium), strconv.Itoa(cs.Medium), formatDelta(ch.MediumDelta)},
		{"Low", strconv.Itoa(ps.Low), strconv.Itoa(cs.Low), formatDelta(ch.LowDelta)},
		{"Info", strconv.Itoa(ps.Info), strconv.Itoa(cs.Info), formatDelta(ch.InfoDelta)},
	}
	return append(rows, []string{"Total", strconv.Itoa(ps.Total), strconv.Itoa(cs.Total), formatDelta(cs.Total - ps.Total)})
}

func outputComparisonText(result *ComparisonResult, out io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Audit Comparison: %s\n", result.Site)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "\nStatus: %s\n", formatDirection(result.Change.Direction))

	prev, cur := result.Previous, result.Current
	fmt.Fprintf(&b, "\nPrevious report: %s (%d pages)\n", prev.DateAnalyzed.Format("2006-01-02 15:04:05"), prev.PagesAnalyzed)
	fmt.Fprintf(&b, "Current report:  %s (%d pages)\n", cur.DateAnalyzed.Format("2006-01-02 15:04:05"), cur.PagesAnalyzed)
	if prev.Partial || cur.Partial {
		b.WriteString("Note: at least one report has partial coverage.\n")
	}

	b.WriteString("\nScores:\n")
	fmt.Fprintf(&b, "  %-12s  %-8s  %-8s  %s\n", "Category", "Previous", "Current", "Change")
	b.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, sc := range result.ScoreChanges {
		fmt.Fprintf(&b, "  %-12s  %-8d  %-8d  %s\n", sc.Category, sc.Previous, sc.Current, formatDelta(sc.Delta))
	}
	b.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&b, "  %-12s  %-8d  %-8d  %s\n", "Overall", prev.OverallScore, cur.OverallScore, formatDelta(result.Change.OverallDelta))

	b.WriteString("\nFindings Summary:\n")
	fmt.Fprintf(&b, "  %-12s  %-8s  %-8s  %s\n", "Severity", "Previous", "Current", "Change")
	b.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, row := range severityRows(result) {
		fmt.Fprintf(&b, "  %-12s  %-8s  %-8s  %s\n", row[0], row[1], row[2], row[3])
	}

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(&b, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(&b, "  [+] [%s] %s: %s\n", f.Severity, f.Title, f.Match)
			fmt.Fprintf(&b, "      Page: %s\n", f.PageURL)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(&b, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(&b, "  [-] [%s] %s: %s\n", f.Severity, f.Title, f.PageURL)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&b, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (compliance increased)"
	case directionWorsened:
		return "WORSENED (compliance decreased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
