package retry

import (
	"time"

	"github.com/lestrrat-go/backoff/v2"
)

const (
	defaultMultiplier   = 2.0
	defaultJitterFactor = 0.1
)

// Policy builds the backoff policy for cfg.
//
// The policy is allowed one retry more than MaxRetries; Do enforces the
// exact attempt count itself so the cap never depends on how the backoff
// controller counts its first tick.
func Policy(cfg *Config) backoff.Policy {
	if cfg.MinDelay <= 0 {
		return backoff.Constant(
			backoff.WithInterval(time.Millisecond),
			backoff.WithMaxRetries(cfg.MaxRetries+1),
		)
	}

	maxDelay := cfg.MaxDelay
	if maxDelay < cfg.MinDelay {
		maxDelay = cfg.MinDelay
	}

	if maxDelay == cfg.MinDelay {
		return backoff.Constant(
			backoff.WithInterval(cfg.MinDelay),
			backoff.WithMaxRetries(cfg.MaxRetries+1),
		)
	}

	return backoff.Exponential(
		backoff.WithMinInterval(cfg.MinDelay),
		backoff.WithMaxInterval(maxDelay),
		backoff.WithMultiplier(defaultMultiplier),
		backoff.WithJitterFactor(defaultJitterFactor),
		backoff.WithMaxRetries(cfg.MaxRetries+1),
	)
}

// delayFor reports the nominal delay before the given retry, for logging.
func delayFor(cfg *Config, retry int) time.Duration {
	if cfg.MinDelay <= 0 || retry <= 0 {
		return 0
	}
	d := cfg.MinDelay
	for i := 1; i < retry; i++ {
		d = time.Duration(float64(d) * defaultMultiplier)
		if cfg.MaxDelay > 0 && d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return d
}
