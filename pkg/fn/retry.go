package fn

import (
	"context"
	"time"
)

// RetryOpts configures retry behavior.
type RetryOpts struct {
	MaxAttempts int
	// Delay is the pause between attempts.
	Delay time.Duration
	// OnFailure is called after every failed attempt, including the last one.
	OnFailure func(attempt int, err error)
	// RetryIf decides whether a failure is worth another attempt. Nil retries
	// every failure.
	RetryIf func(err error) bool
}

// FixedRetry returns options that make n attempts separated by a constant delay.
func FixedRetry(n int, delay time.Duration) RetryOpts {
	return RetryOpts{MaxAttempts: n, Delay: delay}
}

// Retry calls f until it succeeds, MaxAttempts is exhausted or ctx is done.
// The last failed Result is returned as is; it never panics.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	var result Result[T]

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result = f(ctx)
		if result.IsOk() {
			return result
		}
		if opts.OnFailure != nil {
			opts.OnFailure(attempt, result.err)
		}
		if attempt == opts.MaxAttempts || (opts.RetryIf != nil && !opts.RetryIf(result.err)) {
			break
		}

		timer := time.NewTimer(opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Err[T](ctx.Err())
		case <-timer.C:
		}
	}
	return result
}
