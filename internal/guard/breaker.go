package guard

import (
	"context"
	"sync"
	"time"
)

// DefaultResetWindow is the interval within which a second reset trips the breaker.
const DefaultResetWindow = 60 * time.Second

// Breaker is the process-wide processing kill switch.
type Breaker struct {
	mu        sync.Mutex
	active    bool
	lastReset time.Time
	window    time.Duration
	inflight  InFlight
	now       func() time.Time
}

// NewBreaker returns an inactive breaker that clears inflight on Reset.
func NewBreaker(inflight InFlight, window time.Duration) *Breaker {
	if window <= 0 {
		window = DefaultResetWindow
	}
	return &Breaker{inflight: inflight, window: window, now: time.Now}
}

// Trip stops all processing.
func (b *Breaker) Trip() {
	b.mu.Lock()
	b.active = true
	b.mu.Unlock()
}

// Enable resumes processing.
func (b *Breaker) Enable() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
}

// Active reports whether processing is stopped.
func (b *Breaker) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Reset clears the in-flight set. A reset arriving within the window of the
// previous one forces the breaker on and reports tripped.
func (b *Breaker) Reset(ctx context.Context) (tripped bool, err error) {
	b.mu.Lock()
	now := b.now()
	if !b.lastReset.IsZero() && now.Sub(b.lastReset) < b.window {
		b.active = true
		tripped = true
	}
	b.lastReset = now
	b.mu.Unlock()

	if b.inflight != nil {
		err = b.inflight.Reset(ctx)
	}
	return tripped, err
}
