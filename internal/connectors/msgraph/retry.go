package msgraph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Backoff bounds for the single retry after a throttled or busy response.
const (
	DefaultRetryMin = 2 * time.Second
	DefaultRetryMax = 15 * time.Second
)

// Backoff computes the wait before retrying a transient failure.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// DefaultBackoff returns the 2s..15s window.
func DefaultBackoff() Backoff {
	return Backoff{Min: DefaultRetryMin, Max: DefaultRetryMax}
}

// Delay returns the server hint clamped to [Min, Max], or Min when err carries no hint.
func (b Backoff) Delay(err error) time.Duration {
	wait := b.Min
	if hint, ok := RetryAfter(err); ok {
		wait = hint
	}
	if wait < b.Min {
		wait = b.Min
	}
	if b.Max > 0 && wait > b.Max {
		wait = b.Max
	}
	return wait
}

// RetryOnce runs fn and, when it fails transiently, runs it exactly once more
// after the backoff delay. The second error is returned unchanged.
func (b Backoff) RetryOnce(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !IsTransient(err) {
		return err
	}

	wait := b.Delay(err)
	logger.With(zap.String("op", op), zap.Duration("wait", wait), zap.Error(err)).Debug("retrying throttled request")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return fn()
}
