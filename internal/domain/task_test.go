package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	task, err := NewTask(ownerID, LocalizedText{"en": "Write report"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if task.OwnerID != ownerID {
		t.Errorf("Expected owner ID %s, got %s", ownerID, task.OwnerID)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("Expected pending status, got %s", task.Status)
	}
	if task.Priority != TaskPriorityMedium {
		t.Errorf("Expected medium priority, got %s", task.Priority)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
	if !task.IsRoot() {
		t.Error("Expected a new task to be a root task")
	}
	if task.IsDeleted() {
		t.Error("Expected a new task to be active")
	}
}

func TestNewTaskMissingDefaultLocaleName(t *testing.T) {
	t.Parallel()

	_, err := NewTask(uuid.New(), LocalizedText{"fr": "Bonjour"})
	if !IsValidationCode(err, CodeMissingDefaultLocaleName) {
		t.Errorf("Expected %s, got %v", CodeMissingDefaultLocaleName, err)
	}

	_, err = NewTask(uuid.New(), LocalizedText{"en": ""})
	if !IsValidationCode(err, CodeMissingDefaultLocaleName) {
		t.Errorf("Expected %s for empty default entry, got %v", CodeMissingDefaultLocaleName, err)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Task {
		task, err := NewTask(uuid.New(), LocalizedText{"en": "A"})
		if err != nil {
			t.Fatalf("Expected valid base task, got %v", err)
		}
		return task
	}

	t.Run("empty owner", func(t *testing.T) {
		task := valid()
		task.OwnerID = uuid.Nil
		if err := task.Validate(); !IsValidationCode(err, CodeEmptyField) {
			t.Errorf("Expected %s, got %v", CodeEmptyField, err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		task := valid()
		task.Status = "archived"
		if err := task.Validate(); !IsValidationCode(err, CodeInvalidStatus) {
			t.Errorf("Expected %s, got %v", CodeInvalidStatus, err)
		}
	})

	t.Run("unknown priority", func(t *testing.T) {
		task := valid()
		task.Priority = "critical"
		if err := task.Validate(); !IsValidationCode(err, CodeInvalidPriority) {
			t.Errorf("Expected %s, got %v", CodeInvalidPriority, err)
		}
	})

	t.Run("self parent", func(t *testing.T) {
		task := valid()
		task.ParentID = &task.ID
		if err := task.Validate(); !IsValidationCode(err, CodeSelfParent) {
			t.Errorf("Expected %s, got %v", CodeSelfParent, err)
		}
	})
}

func TestTaskIsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	task, _ := NewTask(uuid.New(), LocalizedText{"en": "A"})

	if task.IsOverdue(now) {
		t.Error("Expected no due date to mean not overdue")
	}

	task.DueDate = &past
	if !task.IsOverdue(now) {
		t.Error("Expected past due date to be overdue")
	}

	task.Status = TaskStatusCompleted
	if task.IsOverdue(now) {
		t.Error("Expected completed task to never be overdue")
	}

	task.Status = TaskStatusPending
	task.DueDate = &future
	if task.IsOverdue(now) {
		t.Error("Expected future due date to not be overdue")
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()

	parentID := uuid.New()
	due := time.Now().UTC()
	task, _ := NewTask(uuid.New(), LocalizedText{"en": "A"})
	task.Description = LocalizedText{"en": "Desc"}
	task.ParentID = &parentID
	task.DueDate = &due

	clone := task.Clone()
	clone.Name["en"] = "changed"
	clone.Description["en"] = "changed"
	*clone.ParentID = uuid.New()

	if task.Name["en"] != "A" {
		t.Error("Expected clone mutation to not leak into source name")
	}
	if task.Description["en"] != "Desc" {
		t.Error("Expected clone mutation to not leak into source description")
	}
	if *task.ParentID != parentID {
		t.Error("Expected clone mutation to not leak into source parent ID")
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	root, _ := NewTask(ownerID, LocalizedText{"en": "Root"})
	root.Status = TaskStatusInProgress
	root.Priority = TaskPriorityHigh
	root.DueDate = &past

	child, _ := NewTask(ownerID, LocalizedText{"en": "Child"})
	child.ParentID = &root.ID

	deleted, _ := NewTask(ownerID, LocalizedText{"en": "Gone"})
	deleted.DeletedAt = &now

	stats := ComputeStats([]*Task{root, child, deleted}, now)

	if stats.Total != 2 {
		t.Errorf("Expected 2 active tasks, got %d", stats.Total)
	}
	if stats.ByStatus[TaskStatusInProgress] != 1 || stats.ByStatus[TaskStatusPending] != 1 {
		t.Errorf("Unexpected status counts: %v", stats.ByStatus)
	}
	if stats.ByPriority[TaskPriorityHigh] != 1 {
		t.Errorf("Unexpected priority counts: %v", stats.ByPriority)
	}
	if stats.Overdue != 1 {
		t.Errorf("Expected 1 overdue task, got %d", stats.Overdue)
	}
	if stats.Roots != 1 || stats.Subtasks != 1 {
		t.Errorf("Expected 1 root and 1 subtask, got %d/%d", stats.Roots, stats.Subtasks)
	}
}
