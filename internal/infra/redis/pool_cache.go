package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"finquiz-service/internal/domain"
	"finquiz-service/internal/infra/memory"
)

// PoolCache caches question pools in Redis as JSON blobs and falls back to a
// loader on cache miss. Pools are stored as: SET pool:{key} {json} EX ttl
type PoolCache struct {
	client *redis.Client
	loader memory.PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPoolCache(client *redis.Client, loader memory.PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) Pool(ctx context.Context, key string) ([]domain.Question, error) {
	cacheKey := c.poolKey(key)

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		if pool, decodeErr := decodePool(raw); decodeErr == nil {
			return pool, nil
		}
		// Corrupt entry, drop it and reload.
		_ = c.client.Del(ctx, cacheKey).Err()
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, cacheKey).Bytes()
		if err == nil {
			if pool, decodeErr := decodePool(raw); decodeErr == nil {
				return pool, nil
			}
		}

		pool, err := c.loader.LoadPool(ctx, key)
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(pool); err == nil {
			_ = c.client.Set(ctx, cacheKey, encoded, c.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *PoolCache) poolKey(key string) string {
	return "pool:" + key
}

func decodePool(raw []byte) ([]domain.Question, error) {
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
