// Package retry re-runs operations that fail with transient errors.
//
// Delays come from github.com/lestrrat-go/backoff/v2. Only errors classified
// as retryable by pkg/errors (network failures, HTTP 429 and 5xx) are retried;
// everything else is returned after the first attempt.
package retry
