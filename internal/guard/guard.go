// Package guard holds the cross-request admission state: the set of uploads
// currently being processed and the operator circuit breaker.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an in-flight claim lives before it is considered stale.
const DefaultTTL = 5 * time.Minute

// InFlight is an atomic check-and-set over upload keys. Each claim carries a
// token so a holder whose claim already expired cannot drop a newer one.
type InFlight interface {
	// Acquire claims key. It returns false when an unexpired claim exists,
	// otherwise the token identifying the new claim.
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	// Release drops the claim on key if it is still held under token.
	Release(ctx context.Context, key, token string) error
	// Reset drops every claim.
	Reset(ctx context.Context) error
}

// MemoryInFlight keeps claims in process memory.
type MemoryInFlight struct {
	mu      sync.Mutex
	entries map[string]claim
	ttl     time.Duration
	now     func() time.Time
}

type claim struct {
	token   string
	started time.Time
}

// NewMemoryInFlight returns an in-process set. A zero ttl uses DefaultTTL.
func NewMemoryInFlight(ttl time.Duration) *MemoryInFlight {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryInFlight{entries: map[string]claim{}, ttl: ttl, now: time.Now}
}

func (m *MemoryInFlight) Acquire(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if c, ok := m.entries[key]; ok && now.Sub(c.started) < m.ttl {
		return "", false, nil
	}
	token := uuid.NewString()
	m.entries[key] = claim{token: token, started: now}
	return token, true, nil
}

func (m *MemoryInFlight) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	if c, ok := m.entries[key]; ok && c.token == token {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryInFlight) Reset(context.Context) error {
	m.mu.Lock()
	m.entries = map[string]claim{}
	m.mu.Unlock()
	return nil
}

// Len reports the number of unexpired claims.
func (m *MemoryInFlight) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for _, c := range m.entries {
		if now.Sub(c.started) < m.ttl {
			n++
		}
	}
	return n
}
