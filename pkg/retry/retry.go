package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/backoff/v2"

	errs "wallscraper/pkg/errors"
	"wallscraper/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt (0 disables retrying)
	MaxRetries int
	// MinDelay is the delay before the first retry
	MinDelay time.Duration
	// MaxDelay caps the exponential growth of the delay
	MaxDelay time.Duration
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a configuration that never retries
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 0,
		MinDelay:   time.Second,
		MaxDelay:   30 * time.Second,
		RetryIf:    DefaultRetryIf,
		Logger:     logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries typed transient errors and nothing else
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var scrapeErr *errs.Error
	if errors.As(err, &scrapeErr) {
		return errs.IsRetryable(scrapeErr.Type)
	}

	return false
}

// Do executes op, retrying retryable failures up to cfg.MaxRetries times
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	if cfg.MaxRetries <= 0 {
		return op(ctx)
	}

	var lastErr error
	attempt := 0

	b := Policy(cfg).Start(ctx)
	for backoff.Continue(b) {
		attempt++

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		if attempt > cfg.MaxRetries {
			log.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxRetries, err)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":     attempt,
			"error":       err.Error(),
			"delay":       delayFor(cfg, attempt),
			"max_retries": cfg.MaxRetries,
		})
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr == nil {
			return ctxErr
		}
		return fmt.Errorf("retry cancelled: %w", errors.Join(ctxErr, lastErr))
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt was made")
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}

// Retrier binds a Config so callers can share it
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: cfg}
}

// Do executes an operation with retry logic
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	return Do(ctx, op, r.config)
}

// MaxRetries reports the configured retry budget
func (r *Retrier) MaxRetries() int {
	return r.config.MaxRetries
}

// Config returns the retrier's configuration
func (r *Retrier) Config() *Config {
	return r.config
}
