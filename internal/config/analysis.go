package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"

	"github.com/nao1215/telecheck/internal/scoring"
)

// Analysis defaults.
const (
	DefaultMaxPages     = 50
	DefaultMaxDepth     = 3
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 15 * time.Second
	DefaultMaxRedirects = 10
	DefaultMaxBodySize  = 5 * 1024 * 1024 // 5MB
	DefaultMaxImages    = 20

	// DefaultUserAgent is sent when no browser profile is used.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// AnalysisConfig holds the options of one site analysis.
type AnalysisConfig struct {
	// MaxPages bounds the number of page records, failures included.
	MaxPages int `yaml:"maxPages" validate:"min=1"`

	// MaxDepth is the link depth from the seed; 0 fetches the seed only.
	MaxDepth int `yaml:"maxDepth" validate:"min=0"`

	// Concurrency is the number of fetches in flight per depth level.
	Concurrency int `yaml:"concurrency" validate:"min=1"`

	// CrawlTimeoutSeconds is the wall-clock budget of the crawl. 0 means
	// no budget.
	CrawlTimeoutSeconds int `yaml:"crawlTimeoutSeconds" validate:"min=0"`

	// ExcludePatterns are path globs that are never crawled.
	ExcludePatterns []string `yaml:"excludePatterns" validate:"dive,glob"`

	SameDomainOnly bool `yaml:"sameDomainOnly"`

	FetchTimeout time.Duration `yaml:"fetchTimeout" validate:"gt=0"`
	MaxRedirects int           `yaml:"maxRedirects" validate:"min=0"`
	MaxBodySize  int64         `yaml:"maxBodySize" validate:"min=0"`
	UserAgent    string        `yaml:"userAgent"`

	// Delay is the pause before each request of a worker.
	Delay time.Duration `yaml:"delay" validate:"min=0"`

	RespectRobots bool `yaml:"respectRobots"`
	InspectImages bool `yaml:"inspectImages"`
	MaxImages     int  `yaml:"maxImages" validate:"min=0"`

	// ProxyURL routes requests through an http, https or socks5 proxy.
	ProxyURL string `yaml:"proxyURL" validate:"omitempty,proxyurl"`

	Cookie  string            `yaml:"cookie"`
	Headers map[string]string `yaml:"headers"`

	Weights scoring.Weights `yaml:"weights"`

	// ScoreAdvisories adds review recommendations for low category scores.
	ScoreAdvisories bool `yaml:"scoreAdvisories"`
}

// DefaultAnalysisConfig returns the default analysis options.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxPages:       DefaultMaxPages,
		MaxDepth:       DefaultMaxDepth,
		Concurrency:    DefaultConcurrency,
		SameDomainOnly: true,
		FetchTimeout:   DefaultFetchTimeout,
		MaxRedirects:   DefaultMaxRedirects,
		MaxBodySize:    DefaultMaxBodySize,
		MaxImages:      DefaultMaxImages,
		Weights:        scoring.DefaultWeights(),
	}
}

// CrawlTimeout returns the crawl budget as a duration.
func (c AnalysisConfig) CrawlTimeout() time.Duration {
	return time.Duration(c.CrawlTimeoutSeconds) * time.Second
}

// fieldErrors maps struct fields to their sentinel errors.
var fieldErrors = map[string]error{
	"MaxPages":            ErrInvalidMaxPages,
	"MaxDepth":            ErrInvalidMaxDepth,
	"Concurrency":         ErrInvalidConcurrency,
	"CrawlTimeoutSeconds": ErrInvalidCrawlTimeout,
	"ExcludePatterns":     ErrInvalidExcludePattern,
	"FetchTimeout":        ErrInvalidTimeout,
	"MaxRedirects":        ErrInvalidMaxRedirects,
	"MaxBodySize":         ErrInvalidMaxBodySize,
	"Delay":               ErrInvalidDelay,
	"MaxImages":           ErrInvalidMaxImages,
	"ProxyURL":            ErrInvalidProxy,
	"Critical":            ErrInvalidWeights,
	"High":                ErrInvalidWeights,
	"Medium":              ErrInvalidWeights,
	"Low":                 ErrInvalidWeights,
	"Info":                ErrInvalidWeights,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		_, err := glob.Compile(fl.Field().String(), '/')
		return err == nil
	})
	_ = v.RegisterValidation("proxyurl", func(fl validator.FieldLevel) bool {
		return validProxyURL(fl.Field().String())
	})
	return v
}

func validProxyURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
		return true
	}
	return false
}

// Validate checks every option and returns the first problem as a
// *ConfigError wrapping one of the package sentinels.
func (c AnalysisConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field, _, _ := strings.Cut(fe.StructField(), "[")
			sentinel, ok := fieldErrors[field]
			if !ok {
				sentinel = errors.New(fe.Error())
			}
			return &ConfigError{Field: fe.Namespace(), Err: sentinel}
		}
		return &ConfigError{Field: "AnalysisConfig", Err: err}
	}
	if err := c.Weights.Validate(); err != nil {
		return &ConfigError{Field: "AnalysisConfig.Weights", Err: ErrInvalidWeights}
	}
	return nil
}

// ValidateSiteURL checks that raw names a host. A missing scheme is
// accepted; https is assumed.
func ValidateSiteURL(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return &ConfigError{Field: "url", Err: ErrInvalidURL}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return &ConfigError{Field: "url", Err: ErrInvalidURL}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	}
	return &ConfigError{Field: "url", Err: ErrInvalidURL}
}
