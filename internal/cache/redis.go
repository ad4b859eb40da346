package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tasknest/tasknest/internal/domain"
)

const keyPrefix = "tasknest:cache:"

// cachedList is the stored payload for a listing. The version field guards
// against decoding payloads written by an older key layout.
type cachedList struct {
	Version  int            `json:"version"`
	CachedAt time.Time      `json:"cachedAt"`
	Total    int            `json:"total"`
	Tasks    []*domain.Task `json:"tasks"`
}

const listPayloadVersion = 1

// RedisTaskCache implements TaskCache on a Redis key-value store.
//
// List entries are not individually addressable from a mutation (the filter
// space is unbounded), so every list key written for an owner is also
// registered in a per-owner index set; invalidation deletes the set's
// members and the set itself in one round.
type RedisTaskCache struct {
	rdb    *redis.Client
	ttls   TTLs
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisTaskCache creates a Redis-backed TaskCache. If logger is nil, a
// default logger will be used.
func NewRedisTaskCache(rdb *redis.Client, ttls TTLs, logger *slog.Logger) *RedisTaskCache {
	if rdb == nil {
		panic("rdb cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTaskCache{
		rdb:    rdb,
		ttls:   ttls.normalized(),
		logger: logger.With(slog.String("component", "task_cache")),
		now:    time.Now,
	}
}

// Ensure RedisTaskCache implements TaskCache
var _ TaskCache = (*RedisTaskCache)(nil)

func listKey(ownerID uuid.UUID, fingerprint string) string {
	return keyPrefix + "list:" + ownerID.String() + ":" + fingerprint
}

func listIndexKey(ownerID uuid.UUID) string {
	return keyPrefix + "listkeys:" + ownerID.String()
}

func detailKey(taskID uuid.UUID) string {
	return keyPrefix + "detail:" + taskID.String()
}

func statsKey(ownerID uuid.UUID) string {
	return keyPrefix + "stats:" + ownerID.String()
}

// GetList implements TaskCache.GetList
func (c *RedisTaskCache) GetList(ctx context.Context, ownerID uuid.UUID, fingerprint string) ([]*domain.Task, int, bool) {
	raw, err := c.rdb.Get(ctx, listKey(ownerID, fingerprint)).Bytes()
	if err != nil {
		c.miss(ctx, "get_list", err)
		return nil, 0, false
	}
	var payload cachedList
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Version != listPayloadVersion {
		c.miss(ctx, "get_list", err)
		return nil, 0, false
	}
	return payload.Tasks, payload.Total, true
}

// PutList implements TaskCache.PutList
func (c *RedisTaskCache) PutList(ctx context.Context, ownerID uuid.UUID, fingerprint string, tasks []*domain.Task, total int) {
	payload := cachedList{
		Version:  listPayloadVersion,
		CachedAt: c.now().UTC(),
		Total:    total,
		Tasks:    tasks,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.dropWrite(ctx, "put_list", err)
		return
	}

	key := listKey(ownerID, fingerprint)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, data, c.ttls.List)
	pipe.SAdd(ctx, listIndexKey(ownerID), key)
	// The index set outlives its newest member slightly so invalidation can
	// still find keys that expired on their own.
	pipe.Expire(ctx, listIndexKey(ownerID), c.ttls.List+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		c.dropWrite(ctx, "put_list", err)
	}
}

// GetDetail implements TaskCache.GetDetail
func (c *RedisTaskCache) GetDetail(ctx context.Context, taskID uuid.UUID) (*domain.Task, bool) {
	raw, err := c.rdb.Get(ctx, detailKey(taskID)).Bytes()
	if err != nil {
		c.miss(ctx, "get_detail", err)
		return nil, false
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		c.miss(ctx, "get_detail", err)
		return nil, false
	}
	return &task, true
}

// PutDetail implements TaskCache.PutDetail
func (c *RedisTaskCache) PutDetail(ctx context.Context, taskID uuid.UUID, task *domain.Task) {
	data, err := json.Marshal(task)
	if err != nil {
		c.dropWrite(ctx, "put_detail", err)
		return
	}
	if err := c.rdb.Set(ctx, detailKey(taskID), data, c.ttls.Detail).Err(); err != nil {
		c.dropWrite(ctx, "put_detail", err)
	}
}

// GetStats implements TaskCache.GetStats
func (c *RedisTaskCache) GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.TaskStats, bool) {
	raw, err := c.rdb.Get(ctx, statsKey(ownerID)).Bytes()
	if err != nil {
		c.miss(ctx, "get_stats", err)
		return nil, false
	}
	var stats domain.TaskStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.miss(ctx, "get_stats", err)
		return nil, false
	}
	return &stats, true
}

// PutStats implements TaskCache.PutStats
func (c *RedisTaskCache) PutStats(ctx context.Context, ownerID uuid.UUID, stats *domain.TaskStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		c.dropWrite(ctx, "put_stats", err)
		return
	}
	if err := c.rdb.Set(ctx, statsKey(ownerID), data, c.ttls.Stats).Err(); err != nil {
		c.dropWrite(ctx, "put_stats", err)
	}
}

// InvalidateForTask implements TaskCache.InvalidateForTask
func (c *RedisTaskCache) InvalidateForTask(ctx context.Context, task *domain.Task, parent *domain.Task, children []*domain.Task) {
	if task == nil {
		return
	}

	keys := []string{detailKey(task.ID)}
	keys = append(keys, c.ownerKeys(ctx, task.OwnerID)...)

	if parent != nil {
		keys = append(keys, detailKey(parent.ID))
		// Parent and child share an owner in this domain, but the eviction
		// stays keyed on the parent's own owner so it holds if that ever changes.
		if parent.OwnerID != task.OwnerID {
			keys = append(keys, c.ownerKeys(ctx, parent.OwnerID)...)
		}
	}
	for _, child := range children {
		keys = append(keys, detailKey(child.ID))
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.dropWrite(ctx, "invalidate", err)
	}
}

// ownerKeys collects the owner-wide keys: stats, the list index set and all
// its registered list keys.
func (c *RedisTaskCache) ownerKeys(ctx context.Context, ownerID uuid.UUID) []string {
	keys := []string{statsKey(ownerID), listIndexKey(ownerID)}
	members, err := c.rdb.SMembers(ctx, listIndexKey(ownerID)).Result()
	if err != nil {
		c.miss(ctx, "list_index", err)
		return keys
	}
	return append(keys, members...)
}

// Healthy implements TaskCache.Healthy
func (c *RedisTaskCache) Healthy(ctx context.Context) bool {
	key := keyPrefix + "health:" + uuid.NewString()
	if err := c.rdb.Set(ctx, key, "ok", 10*time.Second).Err(); err != nil {
		c.logger.Warn("cache health probe set failed", slog.String("error", err.Error()))
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil || val != "ok" {
		c.logger.Warn("cache health probe get failed")
		return false
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache health probe del failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// miss logs a read failure at debug level; redis.Nil is an ordinary miss and
// not worth logging at all.
func (c *RedisTaskCache) miss(ctx context.Context, op string, err error) {
	if err == nil || err == redis.Nil {
		return
	}
	c.logger.Debug("cache read treated as miss",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func (c *RedisTaskCache) dropWrite(ctx context.Context, op string, err error) {
	c.logger.Warn("cache write dropped",
		slog.String("op", op),
		slog.String("error", err.Error()))
}
