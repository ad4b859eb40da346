package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain/locale"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Valid task statuses.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid reports whether s is one of the known task statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

// Valid task priorities.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// IsValid reports whether p is one of the known task priorities.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// LocalizedText maps a locale code (e.g. "en", "fr") to text in that locale.
// It is an alias of locale.Fields so the pure resolution helpers apply directly.
type LocalizedText = locale.Fields

// Task represents a user-owned task. Tasks form a two-level tree: a task with
// a non-nil ParentID is a subtask and must itself never be a parent. Name and
// Description are stored per locale; Name must always carry the default locale.
type Task struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
	Status      TaskStatus    `json:"status"`
	Priority    TaskPriority  `json:"priority"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	ParentID    *uuid.UUID    `json:"parent_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// NewTask creates a pending, medium-priority root task owned by ownerID.
// It generates a new UUID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, name LocalizedText) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    TaskStatusPending,
		Priority:  TaskPriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the task's own fields. Hierarchy invariants that need the
// parent row (depth, owner continuity, cycles) are checked by the store at
// write time; the only hierarchy check possible here is self-parenting.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError(CodeEmptyField, "id", "task ID cannot be empty")
	}
	if t.OwnerID == uuid.Nil {
		return NewValidationError(CodeEmptyField, "owner_id", "owner ID cannot be empty")
	}
	if locale.Resolve(t.Name, locale.Default, locale.Default) == "" {
		return NewValidationError(CodeMissingDefaultLocaleName, "name",
			"name must contain a non-empty entry for the default locale "+locale.Default)
	}
	if !t.Status.IsValid() {
		return NewValidationError(CodeInvalidStatus, "status", "unknown status "+string(t.Status))
	}
	if !t.Priority.IsValid() {
		return NewValidationError(CodeInvalidPriority, "priority", "unknown priority "+string(t.Priority))
	}
	if t.ParentID != nil && *t.ParentID == t.ID {
		return NewValidationError(CodeSelfParent, "parent_id", "task cannot be its own parent")
	}
	return nil
}

// IsDeleted reports whether the task carries a soft-delete marker.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// IsRoot reports whether the task has no parent.
func (t *Task) IsRoot() bool {
	return t.ParentID == nil
}

// IsOverdue reports whether the task has a due date in the past and is not
// completed or cancelled.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return false
	}
	return t.DueDate.Before(now)
}

// Clone returns a deep copy of the task. Cached snapshots and event payloads
// hold clones so later mutation of the source cannot leak into them.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Name = make(LocalizedText, len(t.Name))
	for k, v := range t.Name {
		c.Name[k] = v
	}
	if t.Description != nil {
		c.Description = make(LocalizedText, len(t.Description))
		for k, v := range t.Description {
			c.Description[k] = v
		}
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}
