// Package log provides secure logging built on the standard slog package.
//
// The SecureHandler masks sensitive attribute values before they reach the
// underlying handler:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Credentials detected by key name or value pattern (passwords, tokens, keys)
//   - Protected health information keys (patient, dob, ssn, mrn, diagnosis)
//     and social security numbers appearing in any string value
//
// Masking applies in verbose mode too, because logs are often attached to
// tickets or shared with site owners.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching", "url", u, "cookie", cookie) // cookie is masked
//
// To keep a run history on disk, combine the console with a rotating file:
//
//	file := log.NewRotatingWriter(log.FileOptions{Path: path})
//	defer file.Close()
//	logger := log.NewTeeLogger(os.Stderr, file, verbose)
package log
