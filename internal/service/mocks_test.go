package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

// opLog records the order of post-commit side effects so tests can assert
// that cache invalidation happens strictly before broadcasting.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

// fakeTaskStore is an in-memory store.TaskStore. It enforces the same
// hierarchy invariants as the real implementation so service-level scenarios
// exercise the full validation path.
type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*domain.Task
	writeErr error
	readErr  error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

var _ store.TaskStore = (*fakeTaskStore)(nil)

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if err := f.checkParentLocked(task); err != nil {
		return err
	}
	f.tasks[task.ID] = task.Clone()
	return nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if err := task.Validate(); err != nil {
		return err
	}
	existing, ok := f.tasks[task.ID]
	if !ok || existing.OwnerID != task.OwnerID || existing.IsDeleted() {
		return store.ErrTaskNotFound
	}
	if err := f.checkParentLocked(task); err != nil {
		return err
	}
	f.tasks[task.ID] = task.Clone()
	return nil
}

func (f *fakeTaskStore) checkParentLocked(task *domain.Task) error {
	if task.ParentID == nil {
		return nil
	}
	parent, ok := f.tasks[*task.ParentID]
	if !ok || parent.IsDeleted() {
		return store.ErrParentNotFound
	}
	var children []*domain.Task
	for _, t := range f.tasks {
		if t.ParentID != nil && *t.ParentID == task.ID && !t.IsDeleted() {
			children = append(children, t.Clone())
		}
	}
	return store.CheckParentLink(task.ID, task.OwnerID, parent, children)
}

func (f *fakeTaskStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID || task.IsDeleted() {
		return nil, store.ErrTaskNotFound
	}
	now := task.UpdatedAt
	task.DeletedAt = &now
	return task.Clone(), nil
}

func (f *fakeTaskStore) Restore(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID || !task.IsDeleted() {
		return nil, store.ErrTaskNotFound
	}
	task.DeletedAt = nil
	return task.Clone(), nil
}

func (f *fakeTaskStore) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	if task.IsDeleted() && !includeDeleted {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (f *fakeTaskStore) List(ctx context.Context, ownerID uuid.UUID, filter store.FilterSpec) ([]*domain.Task, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, 0, f.readErr
	}
	n := filter.Normalized()
	var matched []*domain.Task
	for _, t := range f.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if t.IsDeleted() && !n.IncludeDeleted {
			continue
		}
		matched = append(matched, t.Clone())
	}
	total := len(matched)
	if n.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[n.Offset:]
	if len(matched) > n.Limit {
		matched = matched[:n.Limit]
	}
	return matched, total, nil
}

func (f *fakeTaskStore) GetDirectChildren(ctx context.Context, taskID uuid.UUID) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var children []*domain.Task
	for _, t := range f.tasks {
		if t.ParentID != nil && *t.ParentID == taskID && !t.IsDeleted() {
			children = append(children, t.Clone())
		}
	}
	return children, nil
}

func (f *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return f }
func (f *fakeTaskStore) DB() *sql.DB                       { return nil }

// get returns the stored task directly, bypassing owner checks.
func (f *fakeTaskStore) get(id uuid.UUID) *domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		return t.Clone()
	}
	return nil
}

// fakeTaskCache records puts, gets and invalidations in memory.
type fakeTaskCache struct {
	mu      sync.Mutex
	log     *opLog
	lists   map[string][]*domain.Task
	totals  map[string]int
	details map[uuid.UUID]*domain.Task
	stats   map[uuid.UUID]*domain.TaskStats

	invalidated []uuid.UUID // task ids passed to InvalidateForTask
}

func newFakeTaskCache(log *opLog) *fakeTaskCache {
	return &fakeTaskCache{
		log:     log,
		lists:   make(map[string][]*domain.Task),
		totals:  make(map[string]int),
		details: make(map[uuid.UUID]*domain.Task),
		stats:   make(map[uuid.UUID]*domain.TaskStats),
	}
}

func listCacheKey(ownerID uuid.UUID, fingerprint string) string {
	return ownerID.String() + ":" + fingerprint
}

func (c *fakeTaskCache) GetList(ctx context.Context, ownerID uuid.UUID, fingerprint string) ([]*domain.Task, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks, ok := c.lists[listCacheKey(ownerID, fingerprint)]
	return tasks, c.totals[listCacheKey(ownerID, fingerprint)], ok
}

func (c *fakeTaskCache) PutList(ctx context.Context, ownerID uuid.UUID, fingerprint string, tasks []*domain.Task, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[listCacheKey(ownerID, fingerprint)] = tasks
	c.totals[listCacheKey(ownerID, fingerprint)] = total
}

func (c *fakeTaskCache) GetDetail(ctx context.Context, taskID uuid.UUID) (*domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.details[taskID]
	return task, ok
}

func (c *fakeTaskCache) PutDetail(ctx context.Context, taskID uuid.UUID, task *domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[taskID] = task
}

func (c *fakeTaskCache) GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.TaskStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.stats[ownerID]
	return stats, ok
}

func (c *fakeTaskCache) PutStats(ctx context.Context, ownerID uuid.UUID, stats *domain.TaskStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[ownerID] = stats
}

func (c *fakeTaskCache) InvalidateForTask(ctx context.Context, task *domain.Task, parent *domain.Task, children []*domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.add("invalidate")
	c.invalidated = append(c.invalidated, task.ID)

	for key := range c.lists {
		if key[:len(task.OwnerID.String())] == task.OwnerID.String() {
			delete(c.lists, key)
			delete(c.totals, key)
		}
	}
	delete(c.details, task.ID)
	delete(c.stats, task.OwnerID)
	if parent != nil {
		delete(c.details, parent.ID)
	}
	for _, child := range children {
		delete(c.details, child.ID)
	}
}

func (c *fakeTaskCache) Healthy(ctx context.Context) bool { return true }

// recordedEvent is one broadcast call captured by fakeBroadcaster.
type recordedEvent struct {
	kind          string
	taskID        uuid.UUID
	parentID      uuid.UUID
	changedFields []string
}

// fakeBroadcaster records broadcast calls in order.
type fakeBroadcaster struct {
	mu     sync.Mutex
	log    *opLog
	events []recordedEvent
}

func newFakeBroadcaster(log *opLog) *fakeBroadcaster {
	return &fakeBroadcaster{log: log}
}

func (b *fakeBroadcaster) record(ev recordedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.add("broadcast:" + ev.kind)
	b.events = append(b.events, ev)
}

func (b *fakeBroadcaster) Created(ctx context.Context, task *domain.Task) {
	b.record(recordedEvent{kind: "created", taskID: task.ID})
}

func (b *fakeBroadcaster) Updated(ctx context.Context, task *domain.Task, changedFields []string) {
	b.record(recordedEvent{kind: "updated", taskID: task.ID, changedFields: changedFields})
}

func (b *fakeBroadcaster) Completed(ctx context.Context, task *domain.Task) {
	b.record(recordedEvent{kind: "completed", taskID: task.ID})
}

func (b *fakeBroadcaster) Deleted(ctx context.Context, task *domain.Task) {
	b.record(recordedEvent{kind: "deleted", taskID: task.ID})
}

func (b *fakeBroadcaster) Restored(ctx context.Context, task *domain.Task) {
	b.record(recordedEvent{kind: "restored", taskID: task.ID})
}

func (b *fakeBroadcaster) ParentUpdated(ctx context.Context, parent *domain.Task, children []*domain.Task) {
	for _, child := range children {
		b.record(recordedEvent{kind: "parent_updated", taskID: child.ID, parentID: parent.ID})
	}
}

func (b *fakeBroadcaster) ChildUpdated(ctx context.Context, subtask *domain.Task, parent *domain.Task) {
	if subtask == nil || subtask.ParentID == nil || parent == nil {
		return
	}
	b.record(recordedEvent{kind: "subtask_updated", taskID: subtask.ID, parentID: parent.ID})
}

func (b *fakeBroadcaster) kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.kind
	}
	return out
}
