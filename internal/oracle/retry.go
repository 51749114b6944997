// Package oracle holds shared plumbing for external model services.
package oracle

import (
	"context"
	"time"

	"docqa/internal/domain"
)

// Do runs fn, retrying transient failures with exponential backoff up to
// attempts tries. Permanent errors and context cancellation surface
// immediately. The last transient error surfaces once attempts are spent.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if !domain.Transient(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
