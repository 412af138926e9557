package config

import "maps"

// SiteConfig holds per-site overrides. Zero values leave the global
// option unchanged.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. a consent or session cookie
	// that lets the crawler past a gate.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page limit.
	MaxPages int `yaml:"maxPages,omitempty"`

	// ExcludePatterns are path globs to skip, replacing the global list.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// RespectRobots enables robots.txt for this site.
	RespectRobots *bool `yaml:"respectRobots,omitempty"`
}

// File represents the structure of the .telecheck configuration file.
type File struct {
	// Sites maps hosts (without "www.") to their overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.ExcludePatterns) > 0 {
		result.ExcludePatterns = siteConfig.ExcludePatterns
	}
	if siteConfig.RespectRobots != nil {
		result.RespectRobots = siteConfig.RespectRobots
	}
	return result
}

// Apply writes the non-zero overrides into ac.
func (sc SiteConfig) Apply(ac *AnalysisConfig) {
	if sc.Cookie != "" {
		ac.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		headers := make(map[string]string, len(ac.Headers)+len(sc.Headers))
		maps.Copy(headers, ac.Headers)
		maps.Copy(headers, sc.Headers)
		ac.Headers = headers
	}
	if sc.Depth != 0 {
		ac.MaxDepth = sc.Depth
	}
	if sc.MaxPages != 0 {
		ac.MaxPages = sc.MaxPages
	}
	if len(sc.ExcludePatterns) > 0 {
		ac.ExcludePatterns = sc.ExcludePatterns
	}
	if sc.RespectRobots != nil {
		ac.RespectRobots = *sc.RespectRobots
	}
}
