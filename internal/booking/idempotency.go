package booking

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyPending = "pending"
)

// Idempotency remembers which booking a client key produced.
// Without a client every claim succeeds.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

func idempotencyKey(userID, key string) string {
	return "parkease:idempotency:" + userID + ":" + key
}

// Claim reserves (userID, key). When the key was already used it returns the
// stored booking id, or an empty id while the first request is still running.
func (i *Idempotency) Claim(ctx context.Context, userID, key string) (claimed bool, bookingID string, err error) {
	if i == nil || i.client == nil || key == "" {
		return true, "", nil
	}
	k := idempotencyKey(userID, key)
	ok, err := i.client.SetNX(ctx, k, idempotencyPending, idempotencyTTL).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	val, err := i.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return i.Claim(ctx, userID, key)
	}
	if err != nil {
		return false, "", err
	}
	if val == idempotencyPending {
		return false, "", nil
	}
	return false, val, nil
}

func (i *Idempotency) Complete(ctx context.Context, userID, key, bookingID string) error {
	if i == nil || i.client == nil || key == "" {
		return nil
	}
	return i.client.Set(ctx, idempotencyKey(userID, key), bookingID, idempotencyTTL).Err()
}

func (i *Idempotency) Release(ctx context.Context, userID, key string) error {
	if i == nil || i.client == nil || key == "" {
		return nil
	}
	return i.client.Del(ctx, idempotencyKey(userID, key)).Err()
}
