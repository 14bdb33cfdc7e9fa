package sync

import (
	"context"
	"errors"
	"time"

	"ledgersync/internal/infrastructure/provider"
)

// Retry runs fn up to attempts times with a fixed delay between attempts.
// Only retryable provider errors (rate limits, data not yet ready) are
// retried; anything else is returned immediately. Retry policy lives at
// the call site, not inside the reconciliation flow.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var provErr *provider.Error
		if !errors.As(err, &provErr) || !provErr.Retryable() {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
