package idempotency

import (
	"context"
	"fmt"
	"time"
)

// Guard claims webhook deliveries so a redelivered event is acknowledged without being reapplied.
type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard creates a guard that remembers claims for ttl.
func NewGuard(store Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

// Claim marks (scope, id) as processed. It returns false when the delivery was already claimed.
func (g *Guard) Claim(ctx context.Context, scope, id string) (bool, error) {
	ok, err := g.store.SetNX(ctx, Key("webhook", scope, id), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook delivery: %w", err)
	}
	return ok, nil
}

// Release forgets a claim so the provider's retry is processed again.
func (g *Guard) Release(ctx context.Context, scope, id string) error {
	if err := g.store.Del(ctx, Key("webhook", scope, id)); err != nil {
		return fmt.Errorf("failed to release webhook delivery: %w", err)
	}
	return nil
}
