package completion

import (
	"sync"
	"time"
)

const defaultBackoffWindow = 30 * time.Second

// Backoff tracks a shared cool-off window after a rate limit rejection.
// Callers consult IsActive before issuing a request and Arm it when a
// request comes back rate limited, so that every caller backs off together.
type Backoff struct {
	mu    sync.Mutex
	until time.Time

	window time.Duration
	now    func() time.Time
}

type BackoffOption func(*Backoff)

// WithBackoffWindow overrides how long a single rate limit rejection
// suppresses requests.
func WithBackoffWindow(window time.Duration) BackoffOption {
	return func(b *Backoff) { b.window = window }
}

// WithBackoffClock overrides the clock, primarily for testing.
func WithBackoffClock(now func() time.Time) BackoffOption {
	return func(b *Backoff) { b.now = now }
}

func NewBackoff(opts ...BackoffOption) *Backoff {
	backoff := &Backoff{
		window: defaultBackoffWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(backoff)
	}
	return backoff
}

// Arm starts (or restarts) the cool-off window.
func (b *Backoff) Arm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until = b.now().Add(b.window)
}

// IsActive reports whether requests should still be suppressed.
func (b *Backoff) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.until)
}

// Remaining returns how much of the cool-off window is left.
func (b *Backoff) Remaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.until.Sub(b.now()); remaining > 0 {
		return remaining
	}
	return 0
}
