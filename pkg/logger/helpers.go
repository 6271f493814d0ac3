package logger

import "time"

// LogDownload logs the outcome of a single wallpaper download
func LogDownload(l Logger, url, filename string, success bool, size int64, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"url":      url,
		"file":     filename,
		"success":  success,
		"duration": duration,
	}

	if err != nil {
		l.WithError(err).ErrorWithFields("Download failed", fields)
		return
	}
	if !success {
		l.InfoWithFields("Download skipped", fields)
		return
	}
	fields["size"] = size
	l.InfoWithFields("Download completed", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n nopLogger) Debug(msg string)                                          {}
func (n nopLogger) Info(msg string)                                           {}
func (n nopLogger) Warn(msg string)                                           {}
func (n nopLogger) Error(msg string)                                          {}
func (n nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n nopLogger) WithError(err error) Logger                                { return n }
func (n nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
