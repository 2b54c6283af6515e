package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// retryChannel runs fn up to attempts times with exponential backoff
// starting at base. Cancellation of ctx stops the loop.
func retryChannel(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
