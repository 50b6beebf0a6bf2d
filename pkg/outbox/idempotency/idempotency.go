// Package idempotency deduplicates Pub/Sub deliveries by envelope event id.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const claimedValue = "1"

// claimStore is the subset of *redis.Client the guard uses.
type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard claims event ids for a single consumer. A claim lives for ttl, so a
// redelivery inside that window is reported as already handled.
type Guard struct {
	store claimStore
	scope string
	ttl   time.Duration
}

func NewGuard(store claimStore, consumer string, ttl time.Duration) (*Guard, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, errors.New("claim store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, fmt.Errorf("ttl must be non-negative, got %s", ttl)
	}
	return &Guard{store: store, scope: "evt:" + consumer, ttl: ttl}, nil
}

// Claim returns true when this call is the first to see eventID.
func (g *Guard) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, claimedValue, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release gives up a claim so the next delivery of eventID is processed.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(eventID string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(eventID))
	if err != nil {
		return "", fmt.Errorf("event id %q: %w", eventID, err)
	}
	if id == uuid.Nil {
		return "", fmt.Errorf("event id %q: nil uuid", eventID)
	}
	return g.store.IdempotencyKey(g.scope, id.String()), nil
}
