package config

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "telecheck"

	// DefaultBatchSize is the number of sites audited concurrently.
	DefaultBatchSize = 2
)

// Config holds the options of one CLI invocation. It is populated from
// flags and passed down explicitly; nothing reads it from global state.
type Config struct {
	// Targets are the site URLs to audit.
	Targets []string

	// Analysis holds the crawl, rule and scoring options applied to every
	// target before per-site overrides.
	Analysis AnalysisConfig

	// Verbose enables debug logging. When false, only warnings and errors
	// are logged.
	Verbose bool

	// BatchSize is the number of sites audited concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file. If empty,
	// .telecheck is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the per-site overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile is the output path. Empty writes to stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores each report in the history database.
	SaveToDB bool

	// LogFile tees logs to a rotating file when set.
	LogFile string
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Analysis:  DefaultAnalysisConfig(),
		BatchSize: DefaultBatchSize,
		DBDir:     XDGDataDir(),
		SaveToDB:  true,
	}
}

// XDGDataDir returns the data directory, which holds the history database.
// On Linux: ~/.local/share/telecheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory.
// On Linux: ~/.config/telecheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the state directory, the default location of log
// files.
// On Linux: ~/.local/state/telecheck
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks the CLI options and the analysis defaults. Target URLs
// are checked here so that a bad URL fails before any crawling starts.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, t := range c.Targets {
		if err := ValidateSiteURL(t); err != nil {
			return err
		}
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return c.Analysis.Validate()
}

// AnalysisFor returns the analysis options for target, with the config
// file's defaults and the matching site section applied.
func (c *Config) AnalysisFor(target string) AnalysisConfig {
	ac := c.Analysis
	if c.SiteConfigs == nil {
		return ac
	}
	site := c.SiteConfigs.GetSiteConfig(SiteKey(target))
	site.Apply(&ac)
	return ac
}

// SiteKey returns the key used for a site in the config file: the
// lowercase host without "www.".
func SiteKey(target string) string {
	s := strings.TrimSpace(target)
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(target)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
