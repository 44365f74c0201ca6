package spot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errStaleListing = errors.New("listing generation changed")

const (
	activeListingKey = "parkease:spots:active"
	generationKey    = "parkease:spots:gen"
)

// Cache keeps the result of the active listing query in Redis.
// A Cache without a client never hits and ignores writes.
//
// Every Invalidate bumps a generation counter. A listing is only stored if
// the generation is unchanged since it was read before the query, so a
// result that raced with a write never lands in the cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Get(ctx context.Context) ([]Spot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, activeListingKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("listing cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var spots []Spot
	if err := json.Unmarshal(raw, &spots); err != nil {
		c.logger.Warn("listing cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return spots, true
}

// Generation returns the current invalidation generation. ok is false when
// the cache is disabled or unreachable, in which case nothing should be stored.
func (c *Cache) Generation(ctx context.Context) (gen int64, ok bool) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return 0, false
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("listing cache generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Set stores spots if no invalidation happened since gen was read.
func (c *Cache) Set(ctx context.Context, gen int64, spots []Spot) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(spots)
	if err != nil {
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleListing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, activeListingKey, data, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleListing), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("listing cache write skipped, invalidated meanwhile")
	default:
		c.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, activeListingKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}
