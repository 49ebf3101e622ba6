package index

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/recalld/internal/db"
)

const (
	retryAttempts = 3
	retryBase     = 100 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times with exponential backoff.
// Only connectivity failures are retried; server error replies and domain
// errors surface immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := retryBase

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(); err == nil || !errors.Is(err, db.ErrUnavailable) {
			return err
		}
	}
	return err
}
