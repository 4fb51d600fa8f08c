// Package cache adds a redis-backed snapshot cache in front of the task
// client, so repeated board loads within the TTL avoid the backend round
// trip. It degrades to a pass-through when redis is absent or failing.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"flowboard/domain"
)

// TaskLister is the read surface being cached. client.Client satisfies it.
type TaskLister interface {
	AllTasks(ctx context.Context, project string) ([]domain.Task, error)
}

// TaskCache is a read-through cache of per-project task lists.
type TaskCache struct {
	base  TaskLister
	redis *redis.Client
	ttl   time.Duration
}

// New creates a TaskCache. client may be nil, in which case every read goes
// straight to the base lister.
func New(base TaskLister, client *redis.Client, ttl time.Duration) *TaskCache {
	if base == nil {
		panic("cache.New: base lister is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{base: base, redis: client, ttl: ttl}
}

// AllTasks returns the cached task list when present, otherwise fetches from
// the base lister and stores the result.
func (c *TaskCache) AllTasks(ctx context.Context, project string) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx, project); ok {
		return tasks, nil
	}

	tasks, err := c.base.AllTasks(ctx, project)
	if err != nil {
		return nil, err
	}

	c.store(ctx, project, tasks)
	return tasks, nil
}

// Invalidate drops the cached list for a project. Callers invoke it after
// any write so the next read observes backend truth.
func (c *TaskCache) Invalidate(ctx context.Context, project string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKey(project)).Err()
}

func (c *TaskCache) load(ctx context.Context, project string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(project)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backend without failing.
			_ = c.redis.Del(ctx, cacheKey(project)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, cacheKey(project)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, project string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(project), data, c.ttl).Err()
}

func cacheKey(project string) string {
	return "tasks:" + project
}
