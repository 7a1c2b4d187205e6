package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	shipmentSeqKeyPrefix = "shipref:"
	shipmentSeqTTL       = 48 * time.Hour
)

// RedisSequence implements the per-day shipment reference counter as an
// INCR on a date-scoped key. Unlike an in-process counter it stays correct
// across restarts and across multiple service instances. The TTL disposes
// of keys once their day has passed.
type RedisSequence struct {
	client *redis.Client
}

func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client}
}

func (r *RedisSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	key := shipmentSeqKeyPrefix + day.Format("20060102")
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		r.client.Expire(ctx, key, shipmentSeqTTL)
	}
	return n, nil
}
