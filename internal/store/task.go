package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// All write methods re-check hierarchy invariants against the current
// database state before persisting, inside the caller's transaction when one
// is active. Use WithTx together with store.RunInTransaction for multi-step
// mutations such as re-parenting:
//
//	err := store.RunInTransaction(ctx, taskStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
//	    return taskStore.WithTx(tx).Update(ctx, task)
//	})
type TaskStore interface {
	// Create persists a new task. The task must be valid according to domain
	// validation rules; when ParentID is set the parent row is locked and the
	// hierarchy invariants (depth, ownership, cycles) are re-checked.
	Create(ctx context.Context, task *domain.Task) error

	// Update persists changes to an existing task identified by (ID, OwnerID).
	// Parent-link changes go through the same hierarchy re-check as Create.
	// Returns ErrTaskNotFound if the task does not exist or is soft-deleted.
	Update(ctx context.Context, task *domain.Task) error

	// SoftDelete marks the task deleted without removing the row.
	// Returns ErrTaskNotFound if the task does not exist or is already deleted.
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// Restore clears the soft-delete marker.
	// Returns ErrTaskNotFound if the task does not exist or is not deleted.
	Restore(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// GetByIDAndOwner retrieves a task owned by ownerID. Soft-deleted rows
	// are only visible when includeDeleted is set.
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID, includeDeleted bool) (*domain.Task, error)

	// List returns the owner's tasks matching the filter spec, ordered per
	// the spec, plus the total match count before pagination.
	List(ctx context.Context, ownerID uuid.UUID, filter FilterSpec) ([]*domain.Task, int, error)

	// GetDirectChildren returns the active direct children of a task.
	GetDirectChildren(ctx context.Context, taskID uuid.UUID) ([]*domain.Task, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore

	// DB returns the underlying database handle, for use with RunInTransaction.
	DB() *sql.DB
}
