// Package cache keeps lane listings in Redis in front of the task repository.
//
// Every write bumps a generation counter that is part of each listing key, so
// one INCR invalidates all cached lanes. Redis failures are logged and the
// call falls through to the repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

const defaultPrefix = "deptboard"

// TaskCache wraps a TaskRepository with read-through caching of List
type TaskCache struct {
	base   port.TaskRepository
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewTaskCache creates a caching task repository. A nil client or a zero TTL
// disables caching.
func NewTaskCache(base port.TaskRepository, client *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger) *TaskCache {
	if base == nil {
		panic("cache.NewTaskCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &TaskCache{
		base:   base,
		redis:  client,
		ttl:    ttl,
		prefix: prefix,
		logger: logger,
	}
}

func (c *TaskCache) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *TaskCache) generationKey() string {
	return c.prefix + ":tasks:gen"
}

func (c *TaskCache) listKey(gen int64, filter port.TaskFilter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	return c.prefix + ":tasks:list:" + strconv.FormatInt(gen, 10) + ":" + string(data), nil
}

func (c *TaskCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// List serves lane listings from Redis when possible. Reads inside a
// transaction always go to the repository.
func (c *TaskCache) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error) {
	if !c.enabled() || sqlite.ExtractTx(ctx) != nil {
		return c.base.List(ctx, filter)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("Task cache unavailable", zap.Error(err))
		return c.base.List(ctx, filter)
	}
	key, err := c.listKey(gen, filter)
	if err != nil {
		return c.base.List(ctx, filter)
	}

	if tasks, ok := c.load(ctx, key); ok {
		return tasks, nil
	}

	tasks, err := c.base.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tasks)
	return tasks, nil
}

func (c *TaskCache) load(ctx context.Context, key string) ([]*entity.Task, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Task cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var tasks []*entity.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, key string, tasks []*entity.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Task cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached listing
func (c *TaskCache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.Warn("Task cache invalidation failed", zap.Error(err))
	}
}

func (c *TaskCache) after(ctx context.Context, err error) error {
	if err == nil {
		c.Invalidate(ctx)
	}
	return err
}

// Create passes through and invalidates
func (c *TaskCache) Create(ctx context.Context, task *entity.Task) error {
	return c.after(ctx, c.base.Create(ctx, task))
}

// GetByID always reads the repository
func (c *TaskCache) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	return c.base.GetByID(ctx, id)
}

func (c *TaskCache) UpdatePosition(ctx context.Context, id string, pos port.Position, expectedVersion int64) error {
	return c.after(ctx, c.base.UpdatePosition(ctx, id, pos, expectedVersion))
}

func (c *TaskCache) UpdateDetails(ctx context.Context, task *entity.Task, expectedVersion int64) error {
	return c.after(ctx, c.base.UpdateDetails(ctx, task, expectedVersion))
}

func (c *TaskCache) SetOrders(ctx context.Context, assignments []kanban.Assignment) error {
	return c.after(ctx, c.base.SetOrders(ctx, assignments))
}

func (c *TaskCache) SetArchived(ctx context.Context, id string, archived bool) error {
	return c.after(ctx, c.base.SetArchived(ctx, id, archived))
}

func (c *TaskCache) Delete(ctx context.Context, id string) error {
	return c.after(ctx, c.base.Delete(ctx, id))
}

func (c *TaskCache) CountActive(ctx context.Context, columnID string) (int, error) {
	return c.base.CountActive(ctx, columnID)
}

func (c *TaskCache) ReassignColumn(ctx context.Context, fromColumnID, toColumnID string) (int, error) {
	n, err := c.base.ReassignColumn(ctx, fromColumnID, toColumnID)
	return n, c.after(ctx, err)
}

// Transactions wraps a TransactionManager so the cache is invalidated once
// more after commit. A listing cached while the transaction was open cannot
// outlive it.
func (c *TaskCache) Transactions(tm port.TransactionManager) port.TransactionManager {
	return &invalidatingTx{base: tm, cache: c}
}

type invalidatingTx struct {
	base  port.TransactionManager
	cache *TaskCache
}

func (t *invalidatingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	nested := sqlite.ExtractTx(ctx) != nil
	err := t.base.WithTransaction(ctx, fn)
	if err == nil && !nested {
		t.cache.Invalidate(ctx)
	}
	return err
}

var _ port.TaskRepository = (*TaskCache)(nil)
