package sheets

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// withRetry runs fn up to attempts times, sleeping delay between tries.
// fn must be idempotent: a retry may repeat a write the store already applied.
func withRetry[T any](ctx context.Context, attempts uint, delay time.Duration, fn func() (T, error), notify backoff.Notify) (T, error) {
	if attempts == 0 {
		attempts = 1
	}
	return backoff.Retry(ctx, fn,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
}
