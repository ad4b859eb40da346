// Package cache provides the derived-view cache for task lists, details and
// per-owner statistics. Entries are never authoritative: every read path
// falls back to the store on a miss, and every mutation evicts the affected
// entries before events are broadcast.
//
// The cache is deliberately silent about infrastructure failures. A read
// error is a miss, a write error is a no-op; neither ever reaches a caller.
// The TTL on each entry is a backstop against eviction bugs, not the primary
// coherence mechanism.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
)

// TaskCache caches list, detail and statistics views of tasks.
type TaskCache interface {
	// GetList returns the cached listing for (ownerID, fingerprint), or
	// ok=false on a miss.
	GetList(ctx context.Context, ownerID uuid.UUID, fingerprint string) ([]*domain.Task, int, bool)

	// PutList stores a listing together with its pre-pagination total.
	PutList(ctx context.Context, ownerID uuid.UUID, fingerprint string, tasks []*domain.Task, total int)

	// GetDetail returns the cached detail snapshot for a task.
	GetDetail(ctx context.Context, taskID uuid.UUID) (*domain.Task, bool)

	// PutDetail stores a detail snapshot.
	PutDetail(ctx context.Context, taskID uuid.UUID, task *domain.Task)

	// GetStats returns the cached statistics aggregate for an owner.
	GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.TaskStats, bool)

	// PutStats stores a statistics aggregate.
	PutStats(ctx context.Context, ownerID uuid.UUID, stats *domain.TaskStats)

	// InvalidateForTask evicts every entry a mutation of task may have made
	// stale: the task's detail, all list entries and the stats aggregate of
	// its owner; the parent's detail plus the parent owner's lists and stats
	// when parent is non-nil; and each child's detail. Idempotent.
	InvalidateForTask(ctx context.Context, task *domain.Task, parent *domain.Task, children []*domain.Task)

	// Healthy performs a synthetic put/get/delete round-trip and reports
	// whether the backing store answered. Never returns an error.
	Healthy(ctx context.Context) bool
}

// TTLs groups the per-view expirations, normally taken from config.CacheConfig.
type TTLs struct {
	List   time.Duration
	Detail time.Duration
	Stats  time.Duration
}

// DefaultTTLs are used when a TTL is left unset.
var DefaultTTLs = TTLs{
	List:   5 * time.Minute,
	Detail: 10 * time.Minute,
	Stats:  2 * time.Minute,
}

func (t TTLs) normalized() TTLs {
	if t.List <= 0 {
		t.List = DefaultTTLs.List
	}
	if t.Detail <= 0 {
		t.Detail = DefaultTTLs.Detail
	}
	if t.Stats <= 0 {
		t.Stats = DefaultTTLs.Stats
	}
	return t
}
