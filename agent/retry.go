package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryInterval is the first backoff delay; tests shorten it.
var retryInterval = 250 * time.Millisecond

// retry runs op until it succeeds, returns a permanent error, or maxRetries
// additional attempts are used. Provider SDK retries are disabled so this is
// the only retry layer.
func retry[T any](ctx context.Context, maxRetries int, op func() (T, error)) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxRetries+1)),
	)
}

// classify marks client errors other than 408 and 429 as permanent.
func classify(err error, status int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
