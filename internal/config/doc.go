// Package config defines the analysis options, the CLI configuration and
// the optional .telecheck YAML file with per-site overrides.
//
// AnalysisConfig is validated with go-playground/validator struct tags;
// any failure is reported as a *ConfigError wrapping a sentinel so callers
// can use errors.Is before a crawl starts.
package config
