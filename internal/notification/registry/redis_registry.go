package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/pkg/redis"
)

const (
	sentSetKey = "notifications:sent"
	sentSetTTL = 7 * 24 * time.Hour
)

// RedisRegistry implements SentRegistry on a Redis set, making the
// at-most-once guarantee survive process restarts and span replicas.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a Redis-backed sent registry
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// MarkSent records the key and reports whether it was newly recorded.
// SADD is atomic: exactly one caller wins for a given key.
func (r *RedisRegistry) MarkSent(ctx context.Context, key string) (bool, error) {
	added, err := r.client.SAdd(ctx, sentSetKey, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if added == 1 {
		// Best effort; a missing TTL only delays cleanup
		r.client.Expire(ctx, sentSetKey, sentSetTTL)
	}
	return added == 1, nil
}
