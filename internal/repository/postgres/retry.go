package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	maxElapsedTime  = 10 * time.Second
	initialInterval = 50 * time.Millisecond
	maxInterval     = time.Second
	maxRetries      = uint64(3)
)

// isRetryable reports whether a transaction that failed with err can be run
// again from scratch without changing the outcome.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available
		"53300", // too_many_connections
		"57P03": // cannot_connect_now
		return true
	}
	return false
}

// retry runs op until it succeeds, fails with a non-retryable error or the
// backoff gives up. The last error of op is returned unchanged.
func retry(ctx context.Context, onRetry func(err error, next time.Duration), op func(ctx context.Context) error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	var lastErr error
	err := backoff.RetryNotify(func() error {
		lastErr = op(ctx)
		if lastErr != nil && !isRetryable(lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, backoff.WithContext(b, ctx), onRetry)
	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}
