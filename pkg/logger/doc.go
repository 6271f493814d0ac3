// Package logger provides structured logging for wallscraper.
//
// It wraps zerolog behind a small Logger interface. Console output is
// human-readable and goes to stderr; an optional log file receives JSON lines.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("url", pageURL).Info("Fetching page")
//
// Tests can use NewTestLogger to capture messages or NewNopLogger to drop them.
package logger
