// Package database stores audit history in SQLite (modernc.org/sqlite, no
// cgo). Every report saved by `telecheck scan` lands in one database file
// under the XDG data directory so that `telecheck compare` can diff runs.
//
// Reports are stored whole as JSON alongside a few indexed columns (site,
// time, overall score, severity counts) for listing history without
// decoding every report.
package database
