package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/cache"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/domain/locale"
	"github.com/tasknest/tasknest/internal/events"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Name        domain.LocalizedText
	Description domain.LocalizedText
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	ParentID    *uuid.UUID
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged;
// ClearDueDate removes an existing due date.
type UpdateTaskInput struct {
	Name         domain.LocalizedText
	Description  *domain.LocalizedText
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// TaskService exposes the task operations consumed by the API layer. Every
// mutation follows the same pipeline: validate, persist inside one
// transaction, and only after commit invalidate the cache and then broadcast
// events, in that order, so a consumer reacting to an event by re-querying
// observes fresh state.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error)
	SoftDelete(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	Restore(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	Reparent(ctx context.Context, ownerID, taskID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter store.FilterSpec) ([]*domain.Task, int, error)
	GetDetail(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.TaskStats, error)
}

// txRunner matches store.RunInTransaction; tests substitute a stub so the
// orchestration pipeline can be exercised without a live database.
type txRunner func(ctx context.Context, db *sql.DB, fn store.TxFn) error

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	tasks            store.TaskStore
	cache            cache.TaskCache
	broadcaster      events.Broadcaster
	supportedLocales []string
	logger           *slog.Logger
	runInTx          txRunner
}

// NewTaskService creates a new TaskService. It returns an error if any of
// the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	taskCache cache.TaskCache,
	broadcaster events.Broadcaster,
	supportedLocales []string,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError(domain.CodeEmptyField, "tasks", "cannot be nil")
	}
	if taskCache == nil {
		return nil, domain.NewValidationError(domain.CodeEmptyField, "taskCache", "cannot be nil")
	}
	if broadcaster == nil {
		return nil, domain.NewValidationError(domain.CodeEmptyField, "broadcaster", "cannot be nil")
	}
	if len(supportedLocales) == 0 {
		supportedLocales = []string{locale.Default}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		tasks:            tasks,
		cache:            taskCache,
		broadcaster:      broadcaster,
		supportedLocales: supportedLocales,
		logger:           logger.With(slog.String("component", "task_service")),
		runInTx:          store.RunInTransaction,
	}, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validateLocaleKeys(input.Name, input.Description); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(ownerID, input.Name)
	if err != nil {
		return nil, err
	}
	if len(input.Description) > 0 {
		task.Description = input.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		d := input.DueDate.UTC()
		task.DueDate = &d
	}
	task.ParentID = input.ParentID
	if err := task.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", ownerID.String()))

	s.afterMutation(ctx, task, func(ctx context.Context, parent *domain.Task, children []*domain.Task) {
		s.broadcaster.Created(ctx, task)
		s.broadcaster.ChildUpdated(ctx, task, parent)
		if parent != nil {
			s.notifyParentChildren(ctx, parent)
		}
	})
	return task, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(ctx context.Context, ownerID, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validateLocaleKeys(input.Name, descriptionOf(input)); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, domain.NewValidationError(domain.CodeInvalidStatus, "status",
			"unknown status "+string(*input.Status))
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, domain.NewValidationError(domain.CodeInvalidPriority, "priority",
			"unknown priority "+string(*input.Priority))
	}

	current, err := s.tasks.GetByIDAndOwner(ctx, taskID, ownerID, false)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	var changed []string
	if input.Name != nil {
		updated.Name = input.Name
		changed = append(changed, "name")
	}
	if input.Description != nil {
		updated.Description = *input.Description
		changed = append(changed, "description")
	}
	if input.Status != nil && *input.Status != current.Status {
		updated.Status = *input.Status
		changed = append(changed, "status")
	}
	if input.Priority != nil && *input.Priority != current.Priority {
		updated.Priority = *input.Priority
		changed = append(changed, "priority")
	}
	if input.ClearDueDate {
		updated.DueDate = nil
		changed = append(changed, "due_date")
	} else if input.DueDate != nil {
		d := input.DueDate.UTC()
		updated.DueDate = &d
		changed = append(changed, "due_date")
	}
	if len(changed) == 0 {
		return current, nil
	}
	updated.UpdatedAt = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	completedNow := updated.Status == domain.TaskStatusCompleted &&
		current.Status != domain.TaskStatusCompleted

	log.Info("task updated",
		slog.String("task_id", taskID.String()),
		slog.Any("changed_fields", changed))

	s.afterMutation(ctx, updated, func(ctx context.Context, parent *domain.Task, children []*domain.Task) {
		if completedNow {
			s.broadcaster.Completed(ctx, updated)
		} else {
			s.broadcaster.Updated(ctx, updated, changed)
		}
		s.broadcaster.ChildUpdated(ctx, updated, parent)
		s.broadcaster.ParentUpdated(ctx, updated, children)
	})
	return updated, nil
}

// SoftDelete implements TaskService.SoftDelete
func (s *taskServiceImpl) SoftDelete(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted *domain.Task
	err := s.runInTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		var err error
		deleted, err = s.tasks.WithTx(tx).SoftDelete(ctx, taskID, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("task soft-deleted", slog.String("task_id", taskID.String()))

	s.afterMutation(ctx, deleted, func(ctx context.Context, parent *domain.Task, children []*domain.Task) {
		s.broadcaster.Deleted(ctx, deleted)
		s.broadcaster.ChildUpdated(ctx, deleted, parent)
		s.broadcaster.ParentUpdated(ctx, deleted, children)
	})
	return deleted, nil
}

// Restore implements TaskService.Restore
func (s *taskServiceImpl) Restore(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var restored *domain.Task
	err := s.runInTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		var err error
		restored, err = s.tasks.WithTx(tx).Restore(ctx, taskID, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("task restored", slog.String("task_id", taskID.String()))

	s.afterMutation(ctx, restored, func(ctx context.Context, parent *domain.Task, children []*domain.Task) {
		s.broadcaster.Restored(ctx, restored)
		s.broadcaster.ChildUpdated(ctx, restored, parent)
	})
	return restored, nil
}

// Reparent implements TaskService.Reparent. A nil newParentID detaches the
// task into a root task.
func (s *taskServiceImpl) Reparent(ctx context.Context, ownerID, taskID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	current, err := s.tasks.GetByIDAndOwner(ctx, taskID, ownerID, false)
	if err != nil {
		return nil, err
	}

	oldParent := s.resolveParent(ctx, current)

	updated := current.Clone()
	updated.ParentID = newParentID
	updated.UpdatedAt = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task re-parented",
		slog.String("task_id", taskID.String()),
		slog.Any("new_parent_id", newParentID))

	s.afterMutation(ctx, updated, func(ctx context.Context, parent *domain.Task, children []*domain.Task) {
		// The former parent lost a child; its cached views are stale too.
		if oldParent != nil {
			s.cache.InvalidateForTask(ctx, oldParent, nil, nil)
		}
		s.broadcaster.Updated(ctx, updated, []string{"parent_id"})
		s.broadcaster.ChildUpdated(ctx, updated, parent)
		if oldParent != nil {
			s.notifyParentChildren(ctx, oldParent)
		}
		if parent != nil {
			s.notifyParentChildren(ctx, parent)
		}
	})
	return updated, nil
}

// List implements TaskService.List. Reads go through the cache; a miss
// recomputes from the store and repopulates.
func (s *taskServiceImpl) List(ctx context.Context, ownerID uuid.UUID, filter store.FilterSpec) ([]*domain.Task, int, error) {
	fingerprint := filter.Fingerprint()
	if tasks, total, ok := s.cache.GetList(ctx, ownerID, fingerprint); ok {
		return tasks, total, nil
	}

	tasks, total, err := s.tasks.List(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, err
	}
	s.cache.PutList(ctx, ownerID, fingerprint, tasks, total)
	return tasks, total, nil
}

// GetDetail implements TaskService.GetDetail. The detail cache is keyed by
// task id alone, so a hit is still checked against the requesting owner.
func (s *taskServiceImpl) GetDetail(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	if task, ok := s.cache.GetDetail(ctx, taskID); ok {
		if task.OwnerID != ownerID {
			return nil, store.ErrTaskNotFound
		}
		return task, nil
	}

	task, err := s.tasks.GetByIDAndOwner(ctx, taskID, ownerID, false)
	if err != nil {
		return nil, err
	}
	s.cache.PutDetail(ctx, taskID, task)
	return task, nil
}

// GetStats implements TaskService.GetStats
func (s *taskServiceImpl) GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.TaskStats, error) {
	if stats, ok := s.cache.GetStats(ctx, ownerID); ok {
		return stats, nil
	}

	var all []*domain.Task
	filter := store.FilterSpec{Limit: store.MaxLimit}
	for {
		page, total, err := s.tasks.List(ctx, ownerID, filter)
		if err != nil {
			return nil, NewTaskServiceError("get_stats", "failed to load tasks for aggregation", err)
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			break
		}
		filter.Offset += store.MaxLimit
	}

	stats := domain.ComputeStats(all, time.Now().UTC())
	s.cache.PutStats(ctx, ownerID, stats)
	return stats, nil
}

// afterMutation runs the post-commit side effects: cache invalidation first,
// then the provided broadcast step. Both are best-effort; the mutation has
// already committed and its result is not affected by failures here.
func (s *taskServiceImpl) afterMutation(
	ctx context.Context,
	task *domain.Task,
	broadcast func(ctx context.Context, parent *domain.Task, children []*domain.Task),
) {
	parent := s.resolveParent(ctx, task)
	children := s.resolveChildren(ctx, task)

	s.cache.InvalidateForTask(ctx, task, parent, children)
	broadcast(ctx, parent, children)
}

// notifyParentChildren re-reads a parent's children and fans parent_updated
// out to them.
func (s *taskServiceImpl) notifyParentChildren(ctx context.Context, parent *domain.Task) {
	s.broadcaster.ParentUpdated(ctx, parent, s.resolveChildren(ctx, parent))
}

// resolveParent loads the task's parent snapshot, or nil for root tasks and
// orphaned references. Lookup failures are logged and treated as orphans:
// hierarchy fan-out is advisory and must not fail a committed mutation.
func (s *taskServiceImpl) resolveParent(ctx context.Context, task *domain.Task) *domain.Task {
	if task == nil || task.ParentID == nil {
		return nil
	}
	parent, err := s.tasks.GetByIDAndOwner(ctx, *task.ParentID, task.OwnerID, false)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.Warn("failed to resolve parent for side effects",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return parent
}

func (s *taskServiceImpl) resolveChildren(ctx context.Context, task *domain.Task) []*domain.Task {
	if task == nil || task.ParentID != nil {
		// Subtasks never have children while the depth cap holds.
		return nil
	}
	children, err := s.tasks.GetDirectChildren(ctx, task.ID)
	if err != nil {
		s.logger.Warn("failed to resolve children for side effects",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return children
}

// validateLocaleKeys rejects locale codes outside the configured set at the
// service boundary, before any entity is built.
func (s *taskServiceImpl) validateLocaleKeys(fields ...domain.LocalizedText) error {
	for _, f := range fields {
		if code, ok := locale.ValidateKeys(f, s.supportedLocales); !ok {
			return domain.NewValidationError(domain.CodeUnsupportedLocale, "locale",
				"unsupported locale code "+code)
		}
	}
	return nil
}

func descriptionOf(input UpdateTaskInput) domain.LocalizedText {
	if input.Description == nil {
		return nil
	}
	return *input.Description
}
