package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tasknest/tasknest/internal/domain"
)

// DefaultChannelPrefix is used when the broadcaster is constructed with an
// empty prefix.
const DefaultChannelPrefix = "tasknest:events"

// RedisBroadcaster implements Broadcaster on Redis pub/sub. Channels are
// "<prefix>:owner:<ownerID>" and "<prefix>:global".
type RedisBroadcaster struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisBroadcaster creates a Redis-backed Broadcaster. If logger is nil,
// a default logger will be used.
func NewRedisBroadcaster(rdb *redis.Client, prefix string, logger *slog.Logger) *RedisBroadcaster {
	if rdb == nil {
		panic("rdb cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroadcaster{
		rdb:    rdb,
		prefix: prefix,
		logger: logger.With(slog.String("component", "event_broadcaster")),
		now:    time.Now,
	}
}

// Ensure RedisBroadcaster implements Broadcaster
var _ Broadcaster = (*RedisBroadcaster)(nil)

// OwnerChannel returns the channel carrying one owner's events.
func (b *RedisBroadcaster) OwnerChannel(ownerID uuid.UUID) string {
	return b.prefix + ":owner:" + ownerID.String()
}

// GlobalChannel returns the channel carrying all lifecycle events.
func (b *RedisBroadcaster) GlobalChannel() string {
	return b.prefix + ":global"
}

// Created implements Broadcaster.Created
func (b *RedisBroadcaster) Created(ctx context.Context, task *domain.Task) {
	b.lifecycle(ctx, KindCreated, task, nil)
}

// Updated implements Broadcaster.Updated
func (b *RedisBroadcaster) Updated(ctx context.Context, task *domain.Task, changedFields []string) {
	b.lifecycle(ctx, KindUpdated, task, changedFields)
}

// Completed implements Broadcaster.Completed
func (b *RedisBroadcaster) Completed(ctx context.Context, task *domain.Task) {
	b.lifecycle(ctx, KindCompleted, task, nil)
}

// Deleted implements Broadcaster.Deleted
func (b *RedisBroadcaster) Deleted(ctx context.Context, task *domain.Task) {
	b.lifecycle(ctx, KindDeleted, task, nil)
}

// Restored implements Broadcaster.Restored
func (b *RedisBroadcaster) Restored(ctx context.Context, task *domain.Task) {
	b.lifecycle(ctx, KindRestored, task, nil)
}

// lifecycle publishes exactly two envelopes: owner channel, then global.
func (b *RedisBroadcaster) lifecycle(ctx context.Context, kind Kind, task *domain.Task, changedFields []string) {
	if task == nil {
		return
	}
	env := &Envelope{
		Event:         kind,
		Task:          task,
		ChangedFields: changedFields,
		Timestamp:     b.now().UTC(),
	}
	b.publish(ctx, b.OwnerChannel(task.OwnerID), env)
	b.publish(ctx, b.GlobalChannel(), env)
}

// ParentUpdated implements Broadcaster.ParentUpdated
func (b *RedisBroadcaster) ParentUpdated(ctx context.Context, parent *domain.Task, children []*domain.Task) {
	if parent == nil {
		return
	}
	for _, child := range children {
		env := &Envelope{
			Event:     KindParentUpdated,
			Task:      child,
			Parent:    parent,
			Timestamp: b.now().UTC(),
		}
		b.publish(ctx, b.OwnerChannel(child.OwnerID), env)
	}
}

// ChildUpdated implements Broadcaster.ChildUpdated
func (b *RedisBroadcaster) ChildUpdated(ctx context.Context, subtask *domain.Task, parent *domain.Task) {
	if subtask == nil || subtask.ParentID == nil {
		return
	}
	if parent == nil {
		// Orphaned parent reference: nothing to notify, not an error.
		b.logger.Info("subtask has unresolvable parent, skipping subtask_updated",
			slog.String("task_id", subtask.ID.String()))
		return
	}
	env := &Envelope{
		Event:     KindSubtaskUpdated,
		Task:      subtask,
		Parent:    parent,
		Timestamp: b.now().UTC(),
	}
	b.publish(ctx, b.OwnerChannel(parent.OwnerID), env)
}

func (b *RedisBroadcaster) publish(ctx context.Context, channel string, env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("failed to marshal event envelope",
			slog.String("event", string(env.Event)),
			slog.String("error", err.Error()))
		return
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Warn("failed to publish event, dropping",
			slog.String("event", string(env.Event)),
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
}
