package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/database"
	"github.com/nao1215/telecheck/internal/log"
	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/pipeline"
	"github.com/nao1215/telecheck/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>...",
		Short: "Audit telehealth websites for compliance issues",
		Long: `Scan crawls each site breadth-first from the given URL and checks every page for:
- FTC: unqualified guarantees, miracle and weight-loss claims
- FDA: branded medication claims, prohibited terms, medical advice language
- LegitScript: prescriptions without evaluation, missing terms
- HIPAA: data sharing statements, missing privacy policy, image metadata
- Technical: plain HTTP pages and forms, health data sent with GET, headers

URLs without a scheme default to https. Press Ctrl+C to stop the crawl
early; the report of the pages fetched so far is still printed.

Reports are saved to the history database unless --no-save is given.
With several URLs and --json, one JSON document is written per site.

Examples:
  # Audit a single site
  telecheck scan clinic.example

  # Deeper crawl with a 2 minute budget, skipping the blog archive
  telecheck scan -d 5 -p 200 -t 120 -x "/blog/page/*" https://clinic.example

  # Inspect image metadata and honor robots.txt
  telecheck scan --images --robots clinic.example

  # Markdown report to a file
  telecheck scan -m -o reports/clinic.md clinic.example

  # Audit several sites, three at a time
  telecheck scan -b 3 a.example b.example c.example`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages fetched per site, failures included")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the start page")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent requests per site")
	cmd.Flags().IntP("crawl-timeout", "t", 0,
		"Crawl time budget in seconds (0 = unbounded)")
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("delay", 0,
		"Pause before each request")
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"Path glob to skip, e.g. \"/wp-admin/**\" (repeatable)")
	cmd.Flags().Bool("robots", false,
		"Honor robots.txt")
	cmd.Flags().Bool("images", false,
		"Download same-site images and check their EXIF metadata")
	cmd.Flags().Int("max-images", config.DefaultMaxImages,
		"Maximum number of images inspected per site")
	cmd.Flags().String("proxy", "",
		"Proxy URL (http://, https:// or socks5://)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: desktop Chrome)")

	// Scoring flags
	cmd.Flags().Bool("advisories", false,
		"Add review recommendations for categories scoring below 80")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites audited concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .telecheck in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History and logging
	cmd.Flags().Bool("no-save", false,
		"Do not save reports to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("log-file", "",
		"Also write JSON logs to this rotating file, e.g. "+filepath.Join(config.XDGStateDir(), "scan.log"))

	return cmd
}

// scanEnv holds the destinations and hooks of one scan run.
type scanEnv struct {
	// out receives reports unless Config.ReportFile is set.
	out io.Writer

	// status receives progress lines.
	status io.Writer

	logger *slog.Logger

	// analyzeOpts are appended to the options of every analysis.
	analyzeOpts []pipeline.AnalyzeOption
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFile)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// Restore default handling so a second Ctrl+C exits immediately.
		stop()
	}()

	return runScan(ctx, cfg, scanEnv{
		out:    cmd.OutOrStdout(),
		status: cmd.ErrOrStderr(),
		logger: logger,
	})
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	ac := &cfg.Analysis

	var err error
	if ac.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if ac.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if ac.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if ac.CrawlTimeoutSeconds, err = flags.GetInt("crawl-timeout"); err != nil {
		return nil, err
	}
	if ac.FetchTimeout, err = flags.GetDuration("fetch-timeout"); err != nil {
		return nil, err
	}
	if ac.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if ac.ExcludePatterns, err = flags.GetStringArray("exclude"); err != nil {
		return nil, err
	}
	if ac.RespectRobots, err = flags.GetBool("robots"); err != nil {
		return nil, err
	}
	if ac.InspectImages, err = flags.GetBool("images"); err != nil {
		return nil, err
	}
	if ac.MaxImages, err = flags.GetInt("max-images"); err != nil {
		return nil, err
	}
	if ac.ProxyURL, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	userAgent, err := flags.GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		ac.UserAgent = userAgent
	}
	if ac.ScoreAdvisories, err = flags.GetBool("advisories"); err != nil {
		return nil, err
	}

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args
	return cfg, nil
}

// setupLogger creates the run logger. With logFile set, logs are also
// written as JSON to a rotating file. The returned func closes the file.
func setupLogger(console io.Writer, verbose bool, logFile string) (*slog.Logger, func()) {
	if logFile == "" {
		return log.NewSecureLogger(console, verbose), func() {}
	}
	file := log.NewRotatingWriter(log.FileOptions{Path: logFile})
	return log.NewTeeLogger(console, file, verbose), func() { _ = file.Close() }
}

// runScan audits every target and writes one report per site.
func runScan(ctx context.Context, cfg *config.Config, env scanEnv) error {
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}

	env.logger.Info("starting scan",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	out := env.out
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	writer := newReportWriter(cfg, out)

	analyze := func(ctx context.Context, site string) (*model.Report, error) {
		opts := append([]pipeline.AnalyzeOption{pipeline.WithAnalyzeLogger(env.logger)}, env.analyzeOpts...)
		return pipeline.AnalyzeSite(ctx, site, cfg.AnalysisFor(site), opts...)
	}
	bp := pipeline.NewBatchProcessor(analyze,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(env.logger),
	)

	var (
		mu     sync.Mutex
		failed []string
	)
	start := time.Now()
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r pipeline.BatchResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		prefix := fmt.Sprintf("[%d/%d] %s", index+1, len(cfg.Targets), r.SiteURL)
		if r.Err != nil {
			fmt.Fprintf(env.status, "%s: %v\n", prefix, r.Err)
			failed = append(failed, r.SiteURL)
			return
		}
		fmt.Fprintf(env.status, "%s: %d pages analyzed, overall score %d/100\n",
			prefix, r.Report.PagesAnalyzed, r.Report.OverallScore)
		if cerr := pipeline.CoverageError(r.Report); cerr != nil {
			fmt.Fprintf(env.status, "  warning: %v\n", cerr)
		}

		if _, err := writer.Write(r.Report); err != nil {
			env.logger.Error("report failed", "site", r.SiteURL, "error", err)
			failed = append(failed, r.SiteURL)
		}
		if err := saveReport(ctx, db, r.Report, env.logger); err != nil {
			env.logger.Error("failed to save report", "site", r.SiteURL, "error", err)
		}
	})

	env.logger.Info("scan finished", "elapsed", time.Since(start).Round(time.Millisecond))

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(env.status, "Interrupted: reports cover the pages fetched before the interrupt.")
		return fmt.Errorf("scan interrupted: %w", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d sites failed: %s", len(failed), len(cfg.Targets), strings.Join(failed, ", "))
	}
	return nil
}

// newReportWriter returns the writer for the configured output format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

// createReportFile creates path and its directories. Reports can quote
// page text, so the file is readable by the owner only.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// saveReport stores the report in the history database. Reports without
// analyzed pages are not stored: their scores are vacuous and would show
// up as a false improvement in compare. If db is nil, this is a no-op.
func saveReport(ctx context.Context, db *database.HistoryDB, r *model.Report, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if r.PagesAnalyzed == 0 {
		logger.Warn("report not saved: no pages analyzed", "site", r.SiteURL)
		return nil
	}

	// An interrupted scan still saves its partial report.
	id, err := db.SaveReport(context.WithoutCancel(ctx), r)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	logger.Info("report saved to database", "site", r.SiteURL, "id", id)
	return nil
}
