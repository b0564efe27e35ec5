// Package log builds deedscan's slog logger. Its SecureHandler masks
// session cookies, credentials and token-like values before they reach the
// output, so verbose logs of a probe or a Document AI run can be shared.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("probing session", "cookie", raw) // cookie=***REDACTED***
package log
