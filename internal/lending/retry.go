package lending

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	defaultConflictAttempts  = 5
	defaultConflictBaseDelay = 5 * time.Millisecond
	conflictJitterFactor     = 0.3
)

// retryOnConflict runs fn until it stops failing with errConflict, backing off
// exponentially between attempts: 0, base, 2*base, 4*base, ... plus jitter.
// Any other error ends the loop at once.
func retryOnConflict(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * conflictJitterFactor //nolint:gosec // jitter only
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if !errors.Is(lastErr, errConflict) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrUnavailable, maxAttempts, lastErr)
}
