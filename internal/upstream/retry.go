package upstream

import (
	"context"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

const (
	retryMaxAttempts  = 3
	retryInitialDelay = time.Second
	retryFactor       = 2
)

// WithRetry runs fn up to three attempts, backing off exponentially
// (factor 2) between attempts. Only transient upstream failures are
// retried; every other error kind returns immediately. The backoff
// sleep honors ctx cancellation.
func WithRetry[T any](ctx context.Context, clock timeutil.Clock, fn func(context.Context) (T, error)) (T, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var zero T
	delay := retryInitialDelay
	var lastErr error

	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !fusionerr.Is(err, fusionerr.KindTransientUpstream) || attempt == retryMaxAttempts {
			return zero, err
		}

		timer := clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C():
		}
		delay *= retryFactor
	}
	return zero, lastErr
}
