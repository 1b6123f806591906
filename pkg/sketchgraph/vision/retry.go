package vision

import (
	"context"
	"regexp"
	"strconv"
	"time"

	sgerrors "github.com/randalmurphal/sketchgraph/pkg/sketchgraph/errors"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

// maxRateLimitRetries bounds the retry loop; one initial attempt plus
// this many retries before the failure becomes terminal.
const maxRateLimitRetries = 3

// retryDelayPattern matches the backend-suggested delay embedded in
// throttling error text, e.g. "Please retry in 47.142904658s."
var retryDelayPattern = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// sleepFn suspends only the calling goroutine until the wait elapses or
// the context is cancelled. Overridable in tests.
var sleepFn = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// withRateLimitRetry runs fn, retrying on rate-limit signals.
//
// The wait before each retry prefers the backend-suggested delay parsed
// from the error text plus a one second buffer, falling back to
// exponential backoff starting at 5s and doubling per attempt. The sleep
// suspends only this job's goroutine and respects ctx cancellation.
// Wait and resume events are published to the sink around each sleep.
func withRateLimitRetry(
	ctx context.Context,
	jobID string,
	sink progress.Sink,
	fn func(ctx context.Context) (map[string]any, error),
) (map[string]any, error) {
	if sink == nil {
		sink = progress.Discard
	}

	retries := 0
	for {
		payload, err := fn(ctx)
		if err == nil {
			return payload, nil
		}

		if !sgerrors.IsRetryable(err) {
			return nil, err
		}

		retries++
		if retries > maxRateLimitRetries {
			return nil, &sgerrors.RateLimitError{Attempts: maxRateLimitRetries, Err: err}
		}

		wait := backoffFor(err, retries)

		sink.Publish(progress.Event{
			JobID:  jobID,
			Status: progress.WaitingStatus(wait),
			Wait:   wait,
		})

		if err := sleepFn(ctx, wait); err != nil {
			return nil, err
		}

		sink.Publish(progress.Event{
			JobID:  jobID,
			Status: progress.Retrying,
		})
	}
}

// backoffFor computes the wait before retry n (1-based): the parsed
// backend suggestion plus one second when present, else 5s doubled per
// attempt (5, 10, 20).
func backoffFor(err error, n int) time.Duration {
	wait := time.Duration(5*(1<<(n-1))) * time.Second

	if m := retryDelayPattern.FindStringSubmatch(err.Error()); m != nil {
		if suggested, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil {
			wait = time.Duration((suggested + 1) * float64(time.Second))
		}
	}

	return wait
}
