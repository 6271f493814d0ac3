// Package ratelimit paces outgoing HTTP requests.
//
// TokenBucket wraps golang.org/x/time/rate and is configured in requests per
// minute. NoLimit is used when no rate is configured so callers never need a
// nil check:
//
//	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
