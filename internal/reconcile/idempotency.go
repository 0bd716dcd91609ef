package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/packcredits/backend/pkg/redis"
)

// IdempotencyGuard short-circuits redelivered webhook payloads before they
// reach the reconciler. It is an optimization only: the order-status guard in
// ProcessEvent is the correctness backstop, so losing a redis key is harmless.
//
// A key is written only after the reconciler reaches a terminal outcome. The
// key must never exist for an event still in flight: a crash between marking
// and crediting would make every redelivery ack an order that was never paid.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// Seen reports whether a terminal outcome was already recorded for the event.
func (g *IdempotencyGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	_, err := g.store.Get(ctx, key)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read idempotency key: %w", err)
	}
	return true, nil
}

// Mark records that the event reached a terminal outcome.
func (g *IdempotencyGuard) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	if err := g.store.Set(ctx, key, "1", g.ttl); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
