package store

import (
	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
)

// CheckParentLink validates attaching the task with taskID (owned by
// taskOwnerID) under parent. children are the task's current direct
// children, loaded by the caller inside the same transaction.
//
// The checks, in order:
//
//	SELF_PARENT        parent is the task itself
//	CIRCULAR_REFERENCE parent is a direct child of the task
//	DEPTH_EXCEEDED     parent is already a subtask (tree depth is capped at 2)
//	CROSS_OWNER        parent belongs to a different owner
//
// The cycle scan runs before the depth check: a parent that is a child of the
// task is always also a subtask, and the caller should hear about the cycle,
// not the depth symptom. The depth cap is enforced on every parent-link
// write, so a cycle can only ever arrive via a direct child; the one-level
// scan over children is sufficient and stays O(children).
func CheckParentLink(taskID, taskOwnerID uuid.UUID, parent *domain.Task, children []*domain.Task) error {
	if parent.ID == taskID {
		return domain.NewValidationError(domain.CodeSelfParent, "parent_id",
			"task cannot be its own parent")
	}
	for _, child := range children {
		if child.ID == parent.ID {
			return domain.NewValidationError(domain.CodeCircularReference, "parent_id",
				"parent is a descendant of the task")
		}
	}
	if parent.ParentID != nil {
		return domain.NewValidationError(domain.CodeDepthExceeded, "parent_id",
			"parent is already a subtask; tasks may only nest one level deep")
	}
	if parent.OwnerID != taskOwnerID {
		return domain.NewValidationError(domain.CodeCrossOwner, "parent_id",
			"task and parent must belong to the same owner")
	}
	return nil
}
