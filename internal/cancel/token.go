// Package cancel provides the cooperative stop flag shared by the crawler and the enrichment pipeline.
package cancel

import (
	"context"
	"sync"
	"time"
)

// Token is a resettable, process-wide stop flag. It is checked at suspension
// points; setting it never aborts an operation already in progress.
type Token struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewToken returns an active (not stopped) token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Stop marks the token as stopped. Calling Stop more than once is a no-op.
func (t *Token) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

// Reset re-activates the token for a fresh run.
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		return
	}
	t.stopped = false
	t.done = make(chan struct{})
}

// Stopped reports whether a stop has been requested.
func (t *Token) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Done returns a channel closed once Stop is called.
func (t *Token) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Sleep waits for d. It returns early, reporting false, if the token is stopped
// or ctx is done; it returns true when the full delay elapsed.
func (t *Token) Sleep(ctx context.Context, d time.Duration) bool {
	if t.Stopped() {
		return false
	}
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Done():
		return false
	case <-timer.C:
		return true
	}
}
