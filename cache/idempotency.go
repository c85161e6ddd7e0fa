package cache

import (
	"context"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// Checkout request states tracked per idempotency key.
const (
	StatePending   = "pending"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// CheckoutState is the redis-side record for one checkout idempotency key.
// It lets a retried request return the already-created session without a
// second gateway call. Best-effort only: the gateway-level idempotency key
// remains the authoritative dedup.
type CheckoutState struct {
	IdempotencyKey string
	Status         string
	OrderID        string
	SessionID      string
	Reason         string
}

type IdempotencyStore struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *rd.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func checkoutStateKey(restaurantID, idemKey string) string {
	return fmt.Sprintf("qrpay:checkout:state:%s:%s", restaurantID, idemKey)
}

// Get looks up the state for an idempotency key. found=false means the key
// has never been seen (or has expired).
func (s *IdempotencyStore) Get(ctx context.Context, restaurantID, idemKey string) (CheckoutState, bool, error) {
	m, err := s.rdb.HGetAll(ctx, checkoutStateKey(restaurantID, idemKey)).Result()
	if err != nil {
		return CheckoutState{}, false, err
	}
	if len(m) == 0 {
		return CheckoutState{}, false, nil
	}
	out := CheckoutState{
		IdempotencyKey: idemKey,
		Status:         m["status"],
		OrderID:        m["order_id"],
		SessionID:      m["session_id"],
		Reason:         m["reason"],
	}
	if out.Status == "" {
		out.Status = StatePending
	}
	return out, true, nil
}

// Put writes the state and refreshes the key TTL.
func (s *IdempotencyStore) Put(ctx context.Context, restaurantID string, state CheckoutState) error {
	key := checkoutStateKey(restaurantID, state.IdempotencyKey)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"status", state.Status,
		"order_id", state.OrderID,
		"session_id", state.SessionID,
		"reason", state.Reason,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
