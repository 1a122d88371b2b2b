// Package poll provides a bounded poll-until combinator used by every retrying extraction.
package poll

import (
	"context"
	"time"
)

// Defaults used by detail-page extraction.
const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultMaxAttempts = 10
)

// Probe inspects the current state once. It returns the observed value, whether
// that value is final, and an error only for failures that retrying cannot fix.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// Until runs probe immediately and then once per interval until it reports done
// or maxAttempts probes have run. On exhaustion it returns the last observed value
// with done=false rather than an error. Context cancellation stops polling and is
// returned alongside the last observed value.
func Until[T any](ctx context.Context, interval time.Duration, maxAttempts int, probe Probe[T]) (T, bool, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last T
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, done, err := probe(ctx)
		if err != nil {
			return value, false, err
		}
		last = value
		if done {
			return value, true, nil
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, false, ctx.Err()
		case <-timer.C:
		}
	}
	return last, false, nil
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
