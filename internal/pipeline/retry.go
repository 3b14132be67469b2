package pipeline

import (
	"context"
	"time"
)

// Retry invokes op, waiting and doubling the delay between failed attempts,
// until success or the retry budget is exhausted. The final failure
// propagates unchanged. Retry state is local to one call chain; there is no
// jitter and no cross-scene coordination.
func Retry[T any](ctx context.Context, retries int, initialDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	delay := initialDelay
	for attempt := 0; attempt <= retries; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return result, err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return result, err
}
