package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// retryConnect makes up to 1+MaxRetries attempts, sleeping an exponentially
// growing delay between them. Cancellation of ctx stops the loop.
func retryConnect(ctx context.Context, opts RetryConfig, logger *slog.Logger, connectFn func(context.Context) (Connection, error)) (Connection, error) {
	var err error
	delay := opts.BaseDelay

	for attempt := 0; ; attempt++ {
		var conn Connection
		conn, err = connectFn(ctx)
		if err == nil {
			return conn, nil
		}
		if attempt >= opts.MaxRetries {
			break
		}
		if logger != nil {
			logger.Warn("connect failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("connect aborted after %d attempts: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
		delay = nextDelay(delay, opts)
	}
	return nil, fmt.Errorf("failed to connect after %d retries: %w", opts.MaxRetries, err)
}

func nextDelay(d time.Duration, opts RetryConfig) time.Duration {
	backoff := opts.Backoff
	if backoff < 1 {
		backoff = 2
	}
	next := time.Duration(float64(d) * backoff)
	if opts.MaxDelay > 0 && next > opts.MaxDelay {
		next = opts.MaxDelay
	}
	return next
}
