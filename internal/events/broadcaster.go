package events

import (
	"context"

	"github.com/tasknest/tasknest/internal/domain"
)

// Broadcaster fans task events out to subscribers. Implementations must not
// block the caller on delivery and must never surface publish failures; the
// mutation that triggered the event has already committed.
type Broadcaster interface {
	// Created publishes a created envelope to the owner and global channels.
	Created(ctx context.Context, task *domain.Task)

	// Updated publishes an updated envelope, carrying the advisory list of
	// changed field names, to the owner and global channels.
	Updated(ctx context.Context, task *domain.Task, changedFields []string)

	// Completed publishes a completed envelope to the owner and global channels.
	Completed(ctx context.Context, task *domain.Task)

	// Deleted publishes a deleted envelope to the owner and global channels.
	Deleted(ctx context.Context, task *domain.Task)

	// Restored publishes a restored envelope to the owner and global channels.
	Restored(ctx context.Context, task *domain.Task)

	// ParentUpdated publishes one parent_updated envelope per direct child,
	// each carrying the parent's current snapshot, so viewers of a subtask
	// learn that its parent's aggregate state may have changed.
	ParentUpdated(ctx context.Context, parent *domain.Task, children []*domain.Task)

	// ChildUpdated publishes exactly one subtask_updated envelope carrying
	// both snapshots when the subtask has a resolvable parent. A root task
	// or an orphaned parent reference publishes nothing; that is not an
	// error condition.
	ChildUpdated(ctx context.Context, subtask *domain.Task, parent *domain.Task)
}
