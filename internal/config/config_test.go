package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("analysis defaults", func(t *testing.T) {
		t.Parallel()
		a := cfg.Analysis
		if a.MaxPages != 50 {
			t.Errorf("expected MaxPages 50, got %d", a.MaxPages)
		}
		if a.MaxDepth != 3 {
			t.Errorf("expected MaxDepth 3, got %d", a.MaxDepth)
		}
		if a.Concurrency != 4 {
			t.Errorf("expected Concurrency 4, got %d", a.Concurrency)
		}
		if !a.SameDomainOnly {
			t.Error("expected SameDomainOnly to be true")
		}
		if a.FetchTimeout != 15*time.Second {
			t.Errorf("expected FetchTimeout 15s, got %v", a.FetchTimeout)
		}
		if a.Weights.Critical != 20 || a.Weights.High != 10 || a.Weights.Medium != 5 || a.Weights.Low != 2 {
			t.Errorf("expected weights 20/10/5/2, got %+v", a.Weights)
		}
	})

	t.Run("default BatchSize is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 2 {
			t.Errorf("expected BatchSize 2, got %d", cfg.BatchSize)
		}
	})

	t.Run("saves to the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

func TestAnalysisConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*AnalysisConfig)
		want   error
		field  string
	}{
		{name: "defaults are valid", modify: func(*AnalysisConfig) {}},
		{name: "zero max pages", modify: func(c *AnalysisConfig) { c.MaxPages = 0 }, want: ErrInvalidMaxPages, field: "MaxPages"},
		{name: "negative depth", modify: func(c *AnalysisConfig) { c.MaxDepth = -1 }, want: ErrInvalidMaxDepth, field: "MaxDepth"},
		{name: "depth zero is valid", modify: func(c *AnalysisConfig) { c.MaxDepth = 0 }},
		{name: "zero concurrency", modify: func(c *AnalysisConfig) { c.Concurrency = 0 }, want: ErrInvalidConcurrency, field: "Concurrency"},
		{name: "negative crawl timeout", modify: func(c *AnalysisConfig) { c.CrawlTimeoutSeconds = -5 }, want: ErrInvalidCrawlTimeout, field: "CrawlTimeoutSeconds"},
		{name: "bad glob", modify: func(c *AnalysisConfig) { c.ExcludePatterns = []string{"/admin/*", "/[unclosed"} }, want: ErrInvalidExcludePattern, field: "ExcludePatterns"},
		{name: "zero fetch timeout", modify: func(c *AnalysisConfig) { c.FetchTimeout = 0 }, want: ErrInvalidTimeout, field: "FetchTimeout"},
		{name: "socks proxy is valid", modify: func(c *AnalysisConfig) { c.ProxyURL = "socks5://127.0.0.1:1080" }},
		{name: "ftp proxy", modify: func(c *AnalysisConfig) { c.ProxyURL = "ftp://proxy:21" }, want: ErrInvalidProxy, field: "ProxyURL"},
		{name: "negative weight", modify: func(c *AnalysisConfig) { c.Weights.High = -1 }, want: ErrInvalidWeights, field: "High"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultAnalysisConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if !strings.Contains(ce.Field, tt.field) {
				t.Errorf("expected field %q, got %q", tt.field, ce.Field)
			}
		})
	}
}

func TestValidateSiteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "example.com"},
		{url: "https://example.com/path"},
		{url: "http://example.com"},
		{url: "", wantErr: true},
		{url: "https://", wantErr: true},
		{url: "ftp://example.com", wantErr: true},
		{url: "http://[::1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			err := ValidateSiteURL(tt.url)
			if tt.wantErr && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"example.com"}
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}},
		{name: "no targets", modify: func(c *Config) { c.Targets = nil }, want: ErrNoTarget},
		{name: "invalid target", modify: func(c *Config) { c.Targets = []string{"https://"} }, want: ErrInvalidURL},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, want: ErrInvalidBatchSize},
		{name: "both formats", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, want: ErrConflictingReportFormats},
		{name: "analysis error", modify: func(c *Config) { c.Analysis.MaxPages = -1 }, want: ErrInvalidMaxPages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSiteKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "example.com", want: "example.com"},
		{in: "https://www.Example.com/x", want: "example.com"},
		{in: "http://clinic.example.com:8080", want: "clinic.example.com"},
	}
	for _, tt := range tests {
		if got := SiteKey(tt.in); got != tt.want {
			t.Errorf("SiteKey(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	robots := true
	cf := &File{
		Defaults: SiteConfig{
			Cookie:  "consent=1",
			Headers: map[string]string{"Accept-Language": "en-US"},
			Depth:   2,
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Headers:         map[string]string{"X-Audit": "1"},
				MaxPages:        10,
				ExcludePatterns: []string{"/admin/*"},
				RespectRobots:   &robots,
			},
		},
	}

	t.Run("site overrides merge over defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("example.com")
		if sc.Cookie != "consent=1" {
			t.Errorf("expected default cookie, got %q", sc.Cookie)
		}
		if sc.Depth != 2 {
			t.Errorf("expected depth 2, got %d", sc.Depth)
		}
		if sc.MaxPages != 10 {
			t.Errorf("expected max pages 10, got %d", sc.MaxPages)
		}
		if len(sc.Headers) != 2 {
			t.Errorf("expected 2 headers, got %v", sc.Headers)
		}
		if sc.RespectRobots == nil || !*sc.RespectRobots {
			t.Error("expected RespectRobots to be true")
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()
		_ = cf.GetSiteConfig("example.com")
		if len(cf.Defaults.Headers) != 1 {
			t.Errorf("expected defaults to keep 1 header, got %v", cf.Defaults.Headers)
		}
	})

	t.Run("unknown site gets defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("other.com")
		if sc.MaxPages != 0 || sc.Depth != 2 {
			t.Errorf("expected defaults only, got %+v", sc)
		}
	})
}

func TestConfigAnalysisFor(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Analysis.Headers = map[string]string{"X-Global": "1"}
	cfg.SiteConfigs = &File{
		Sites: map[string]SiteConfig{
			"example.com": {Depth: 1, Cookie: "a=b", Headers: map[string]string{"X-Site": "2"}},
		},
	}

	ac := cfg.AnalysisFor("https://www.example.com/")
	if ac.MaxDepth != 1 {
		t.Errorf("expected depth 1, got %d", ac.MaxDepth)
	}
	if ac.Cookie != "a=b" {
		t.Errorf("expected cookie a=b, got %q", ac.Cookie)
	}
	if ac.Headers["X-Global"] != "1" || ac.Headers["X-Site"] != "2" {
		t.Errorf("expected merged headers, got %v", ac.Headers)
	}
	if len(cfg.Analysis.Headers) != 1 {
		t.Errorf("expected global headers untouched, got %v", cfg.Analysis.Headers)
	}

	other := cfg.AnalysisFor("other.com")
	if other.MaxDepth != DefaultMaxDepth {
		t.Errorf("expected default depth, got %d", other.MaxDepth)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.telecheck")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".telecheck")
		content := `defaults:
  depth: 2
  cookie: "consent=yes"
sites:
  https://www.Clinic.example.com:
    maxPages: 20
    headers:
      Authorization: "Bearer token"
    excludePatterns:
      - "/admin/*"
    respectRobots: true
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.Depth != 2 {
			t.Errorf("expected default depth 2, got %d", cfg.Defaults.Depth)
		}
		site, ok := cfg.Sites["clinic.example.com"]
		if !ok {
			t.Fatalf("expected normalized key clinic.example.com, got %v", cfg.Sites)
		}
		if site.MaxPages != 20 {
			t.Errorf("expected max pages 20, got %d", site.MaxPages)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
		if len(site.ExcludePatterns) != 1 {
			t.Errorf("expected 1 exclude pattern, got %d", len(site.ExcludePatterns))
		}
		if site.RespectRobots == nil || !*site.RespectRobots {
			t.Error("expected respectRobots true")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".telecheck")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".telecheck")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 1\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"state":  XDGStateDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %s dir to end in %q, got %q", name, AppName, dir)
		}
	}
}
