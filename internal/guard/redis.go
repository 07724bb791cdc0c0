package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces in-flight claims in a shared redis.
const RedisKeyPrefix = "axiscore:inflight:"

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInFlight shares claims between processes through redis.
type RedisInFlight struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisInFlight wraps client. A zero ttl uses DefaultTTL.
func NewRedisInFlight(client *redis.Client, ttl time.Duration) *RedisInFlight {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisInFlight{client: client, ttl: ttl}
}

func (r *RedisInFlight) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, RedisKeyPrefix+key, token, r.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisInFlight) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{RedisKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

func (r *RedisInFlight) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
