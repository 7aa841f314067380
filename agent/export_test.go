package agent

import "time"

// SetRetryInterval shortens backoff for tests and returns a restore func.
func SetRetryInterval(d time.Duration) func() {
	prev := retryInterval
	retryInterval = d
	return func() { retryInterval = prev }
}
