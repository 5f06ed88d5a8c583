package timeutil

import (
	"context"
	"time"
)

// ExpBackoff - exponential backoff helper func, starting from initial
func ExpBackoff(prev, initial, max time.Duration) time.Duration {
	if prev == 0 {
		return initial
	}
	if prev > max/2 {
		return max
	}
	return 2 * prev
}

// Retry calls fn until it succeeds, attempts run out or ctx is done, waiting
// with exponential backoff between calls. The last error is returned.
func Retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	var (
		err  error
		wait time.Duration
	)
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		wait = ExpBackoff(wait, initial, max)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
