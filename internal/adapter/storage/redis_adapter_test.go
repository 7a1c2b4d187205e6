package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisSequence_CountsPerDay(t *testing.T) {
	client := getTestRedis(t)
	seq := NewRedisSequence(client)
	ctx := context.Background()

	// A synthetic day keeps the test clear of real traffic.
	day := time.Date(1999, 1, 2, 0, 0, 0, 0, time.UTC)
	key := shipmentSeqKeyPrefix + day.Format("20060102")
	client.Del(ctx, key)
	t.Cleanup(func() { client.Del(ctx, key) })

	for want := int64(1); want <= 3; want++ {
		n, err := seq.Next(ctx, day)
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if n != want {
			t.Errorf("expected %d, got %d", want, n)
		}
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > shipmentSeqTTL {
		t.Errorf("expected a bounded ttl, got %s", ttl)
	}
}
