package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// RetrierConfig configures a Retrier. Zero fields take defaults.
type RetrierConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
}

// Retrier implements usecase.Retrier with exponential backoff. Deadlocks,
// serialization failures and lock timeouts are retried; anything else
// fails immediately.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewRetrier creates a new PostgreSQL retrier.
func NewRetrier(cfg RetrierConfig) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  30 * time.Second,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
	if cfg.MaxRetries > 0 {
		r.maxRetries = cfg.MaxRetries
	}
	if cfg.InitialInterval > 0 {
		r.initialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		r.maxInterval = cfg.MaxInterval
	}
	if cfg.MaxElapsedTime > 0 {
		r.maxElapsedTime = cfg.MaxElapsedTime
	}
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
// Running out of retries on a lock error yields domain.ErrConcurrencyConflict.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0
	var lastLockErr error

	err := backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}

		lastLockErr = err
		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		code := pgErrorCode(err)
		if r.metrics != nil {
			r.metrics.DBRetries.WithLabelValues(code).Inc()
		}
		r.logger.Warn().
			Err(err).
			Int("retry", retryCount).
			Str("operation", "ledger_transaction").
			Str("code", code).
			Msg("retryable database error, retrying")

		return err
	}, backoff.WithContext(b, ctx))

	if err != nil && lastLockErr != nil && isRetryableError(err) {
		return fmt.Errorf("%w: gave up after %d attempts: %s", domain.ErrConcurrencyConflict, retryCount, pgErrorCode(lastLockErr))
	}
	return err
}
