package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked token ids until they expire. It only protects a
// single process; multi-instance deployments use the Redis or Postgres list.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

func NewInMemoryTRL(clock Clock) *InMemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryTRL{revoked: make(map[string]time.Time), clock: clock}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ok, err := shouldRecord(jti, ttl); !ok {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.clock().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	expiresAt, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	return !t.clock().After(expiresAt), nil
}

// DeleteExpired drops entries whose token could no longer be presented.
func (t *InMemoryTRL) DeleteExpired(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	n := 0
	for jti, expiresAt := range t.revoked {
		if now.After(expiresAt) {
			delete(t.revoked, jti)
			n++
		}
	}
	return n, nil
}
