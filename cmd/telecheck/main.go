// Package main provides the entry point for the telecheck CLI.
//
// telecheck crawls a telehealth website and reports potential HIPAA, FDA,
// LegitScript, FTC and technical compliance issues with per-category
// scores and prioritized recommendations.
//
// Usage:
//
//	telecheck scan <url>
//	telecheck compare <site>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
