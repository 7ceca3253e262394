// internal/circulation/retry.go
package circulation

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/lib/pq"
)

const (
	retryMaxAttempts  = 4
	retryBaseDelay    = 10 * time.Millisecond
	retryJitterFactor = 0.3
)

// retrySerializable runs fn with exponential backoff, retrying only when
// the transaction was aborted by a serialization failure or a deadlock.
// All other errors fail fast. Jitter keeps concurrent retriers apart.
func retrySerializable(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Float64() * float64(delay) * retryJitterFactor) //nolint:gosec // math/rand is sufficient for jitter

			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// isSerializationFailure matches pgcodes 40001 (serialization_failure) and
// 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
