package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// taskColumns is the select list shared by every task query.
const taskColumns = `id, owner_id, name, description, status, priority, due_date,
	parent_id, created_at, updated_at, deleted_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection that should be
// initialized and managed by the caller. If logger is nil, a default logger
// will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		sqlDB:  s.sqlDB,
		logger: s.logger,
	}
}

// DB implements store.TaskStore.DB
func (s *PostgresTaskStore) DB() *sql.DB {
	return s.sqlDB
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.validateParentLink(ctx, task); err != nil {
		return err
	}

	name, desc, err := marshalLocalized(task)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_id, name, description, status, priority,
			due_date, parent_id, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID, task.OwnerID, name, desc, task.Status, task.Priority,
		task.DueDate, task.ParentID, task.CreatedAt, task.UpdatedAt, task.DeletedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return mapQueryError("create", err)
	}
	return nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.validateParentLink(ctx, task); err != nil {
		return err
	}

	name, desc, err := marshalLocalized(task)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET name = $1, description = $2, status = $3, priority = $4,
			due_date = $5, parent_id = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		name, desc, task.Status, task.Priority, task.DueDate, task.ParentID,
		task.UpdatedAt, task.ID, task.OwnerID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return mapQueryError("update", err)
	}
	return requireRow(result, "update")
}

// SoftDelete implements store.TaskStore.SoftDelete
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL
		RETURNING ` + taskColumns
	return s.queryOne(ctx, "soft_delete", query, time.Now().UTC(), id, ownerID)
}

// Restore implements store.TaskStore.Restore
func (s *PostgresTaskStore) Restore(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET deleted_at = NULL, updated_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NOT NULL
		RETURNING ` + taskColumns
	return s.queryOne(ctx, "restore", query, time.Now().UTC(), id, ownerID)
}

// GetByIDAndOwner implements store.TaskStore.GetByIDAndOwner
func (s *PostgresTaskStore) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return s.queryOne(ctx, "get_by_id", query, id, ownerID)
}

// GetDirectChildren implements store.TaskStore.GetDirectChildren
func (s *PostgresTaskStore) GetDirectChildren(ctx context.Context, taskID uuid.UUID) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks WHERE parent_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, mapQueryError("get_children", err)
	}
	defer func() { _ = rows.Close() }()

	var children []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, mapQueryError("get_children", err)
		}
		children = append(children, task)
	}
	if err := rows.Err(); err != nil {
		return nil, mapQueryError("get_children", err)
	}
	return children, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, ownerID uuid.UUID, filter store.FilterSpec) ([]*domain.Task, int, error) {
	f := filter.Normalized()

	where, args := buildListWhere(ownerID, f)

	countQuery := `SELECT COUNT(*) FROM tasks ` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, mapQueryError("list_count", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY %s LIMIT %d OFFSET %d`,
		taskColumns, where, orderClause(f), f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapQueryError("list", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, mapQueryError("list", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapQueryError("list", err)
	}
	return tasks, total, nil
}

// validateParentLink re-checks the hierarchy invariants against current
// database state. When the task has a parent, both the task row (when it
// already exists) and the parent row are locked FOR UPDATE in ascending id
// order, so two concurrent re-parent requests that reference each other
// cannot deadlock: both acquire the same locks in the same order.
func (s *PostgresTaskStore) validateParentLink(ctx context.Context, task *domain.Task) error {
	if task.ParentID == nil {
		return nil
	}

	ids := []uuid.UUID{task.ID, *task.ParentID}
	if bytes.Compare(ids[1][:], ids[0][:]) < 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}

	var parent *domain.Task
	for _, id := range ids {
		row, err := s.lockTask(ctx, id)
		if err != nil {
			// The task row itself may not exist yet (create path); only the
			// parent row is required to be present.
			if id == task.ID && store.IsNotFoundError(err) {
				continue
			}
			if id == *task.ParentID && store.IsNotFoundError(err) {
				return store.ErrParentNotFound
			}
			return err
		}
		if row.ID == *task.ParentID {
			parent = row
		}
	}
	if parent == nil {
		return store.ErrParentNotFound
	}

	children, err := s.GetDirectChildren(ctx, task.ID)
	if err != nil {
		return err
	}
	return store.CheckParentLink(task.ID, task.OwnerID, parent, children)
}

// lockTask loads an active task row under FOR UPDATE.
func (s *PostgresTaskStore) lockTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return s.queryOne(ctx, "lock", query, id)
}

// queryOne runs a query expected to return a single task row.
func (s *PostgresTaskStore) queryOne(ctx context.Context, op, query string, args ...any) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, mapQueryError(op, err)
	}
	return task, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task      domain.Task
		name      []byte
		desc      []byte
		dueDate   sql.NullTime
		parentID  uuid.NullUUID
		deletedAt sql.NullTime
	)
	err := row.Scan(&task.ID, &task.OwnerID, &name, &desc, &task.Status,
		&task.Priority, &dueDate, &parentID, &task.CreatedAt, &task.UpdatedAt,
		&deletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(name, &task.Name); err != nil {
		return nil, fmt.Errorf("failed to decode task name: %w", err)
	}
	if len(desc) > 0 {
		if err := json.Unmarshal(desc, &task.Description); err != nil {
			return nil, fmt.Errorf("failed to decode task description: %w", err)
		}
	}
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		task.DueDate = &t
	}
	if parentID.Valid {
		id := parentID.UUID
		task.ParentID = &id
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		task.DeletedAt = &t
	}
	return &task, nil
}

func marshalLocalized(task *domain.Task) (name, desc []byte, err error) {
	name, err = json.Marshal(task.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode task name: %w", err)
	}
	if len(task.Description) > 0 {
		desc, err = json.Marshal(task.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode task description: %w", err)
		}
	}
	return name, desc, nil
}

func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return mapQueryError(op, err)
	}
	if affected == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// buildListWhere assembles the WHERE clause for a normalized filter spec.
// Every value goes through a placeholder; the only interpolated fragments
// are produced by this package.
func buildListWhere(ownerID uuid.UUID, f store.FilterSpec) (string, []any) {
	clauses := []string{"owner_id = $1"}
	args := []any{ownerID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, status := range f.Statuses {
			placeholders[i] = arg(string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(f.Priorities) > 0 {
		placeholders := make([]string, len(f.Priorities))
		for i, priority := range f.Priorities {
			placeholders[i] = arg(string(priority))
		}
		clauses = append(clauses, "priority IN ("+strings.Join(placeholders, ", ")+")")
	}
	switch f.ParentScope {
	case store.ScopeRoots:
		clauses = append(clauses, "parent_id IS NULL")
	case store.ScopeChildren:
		if f.ParentID != nil {
			clauses = append(clauses, "parent_id = "+arg(*f.ParentID))
		}
	}
	if f.DueAfter != nil {
		clauses = append(clauses, "due_date >= "+arg(*f.DueAfter))
	}
	if f.DueBefore != nil {
		clauses = append(clauses, "due_date <= "+arg(*f.DueBefore))
	}
	if f.Search != "" {
		pattern := arg("%" + f.Search + "%")
		clauses = append(clauses,
			`(EXISTS (SELECT 1 FROM jsonb_each_text(name) AS n(loc, txt) WHERE n.txt ILIKE `+pattern+`)
			OR EXISTS (SELECT 1 FROM jsonb_each_text(COALESCE(description, '{}'::jsonb)) AS d(loc, txt) WHERE d.txt ILIKE `+pattern+`))`)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// orderClause maps the whitelisted sort fields to SQL. Priority sorts by
// rank, not alphabetically.
func orderClause(f store.FilterSpec) string {
	dir := "DESC"
	if f.SortDir == store.SortAsc {
		dir = "ASC"
	}
	switch f.SortBy {
	case store.SortByPriority:
		return `CASE priority
			WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1
			END ` + dir + `, created_at DESC`
	case store.SortByDueDate:
		return "due_date " + dir + " NULLS LAST, created_at DESC"
	case store.SortByUpdatedAt:
		return "updated_at " + dir
	default:
		return "created_at " + dir
	}
}
