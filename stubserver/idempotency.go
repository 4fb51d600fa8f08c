package stubserver

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper records Idempotency-Key values in redis so a retried POST
// replays the originally created task instead of creating a duplicate.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(k string) string {
	return "idem:" + k
}

// Claim reserves the key. When the key was already claimed it returns
// isNew == false along with the task id stored by Commit, which may still be
// empty if the original request has not committed yet.
func (r *RedisDeduper) Claim(ctx context.Context, key string) (isNew bool, taskID string, err error) {
	isNew, err = r.client.SetNX(ctx, r.key(key), "", r.ttl).Result()
	if err != nil || isNew {
		return isNew, "", err
	}
	taskID, err = r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return false, "", nil
	}
	return false, taskID, err
}

// Commit records the task created under the key so later retries can replay it.
func (r *RedisDeduper) Commit(ctx context.Context, key, taskID string) error {
	return r.client.Set(ctx, r.key(key), taskID, r.ttl).Err()
}

// Release drops a claimed key, used when task creation fails after the claim.
func (r *RedisDeduper) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
