package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/domain/locale"
)

// CreateTaskRequest is the request body for POST /tasks.
type CreateTaskRequest struct {
	Name        map[string]string `json:"name" validate:"required,min=1"`
	Description map[string]string `json:"description,omitempty"`
	Priority    *string           `json:"priority,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	ParentID    *uuid.UUID        `json:"parent_id,omitempty"`
}

// UpdateTaskRequest is the request body for PATCH /tasks/{id}. Absent fields
// are left unchanged.
type UpdateTaskRequest struct {
	Name         map[string]string  `json:"name,omitempty"`
	Description  *map[string]string `json:"description,omitempty"`
	Status       *string            `json:"status,omitempty"`
	Priority     *string            `json:"priority,omitempty"`
	DueDate      *time.Time         `json:"due_date,omitempty"`
	ClearDueDate bool               `json:"clear_due_date,omitempty"`
}

// ReparentTaskRequest is the request body for PUT /tasks/{id}/parent.
// A null parent_id detaches the task into a root task.
type ReparentTaskRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// TaskResponse is the task representation returned by every endpoint. The
// full locale maps travel alongside the resolved strings for the requested
// locale, so clients can render immediately and still switch locales.
type TaskResponse struct {
	ID                  uuid.UUID         `json:"id"`
	OwnerID             uuid.UUID         `json:"owner_id"`
	Name                map[string]string `json:"name"`
	Description         map[string]string `json:"description,omitempty"`
	ResolvedName        string            `json:"resolved_name"`
	ResolvedDescription string            `json:"resolved_description,omitempty"`
	Status              string            `json:"status"`
	Priority            string            `json:"priority"`
	DueDate             *time.Time        `json:"due_date,omitempty"`
	ParentID            *uuid.UUID        `json:"parent_id,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	DeletedAt           *time.Time        `json:"deleted_at,omitempty"`
}

// ListTasksResponse is the paginated listing envelope.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// NewTaskResponse converts a domain task, resolving localized fields for the
// requested locale with the default-locale fallback.
func NewTaskResponse(task *domain.Task, requestedLocale string) TaskResponse {
	return TaskResponse{
		ID:                  task.ID,
		OwnerID:             task.OwnerID,
		Name:                task.Name,
		Description:         task.Description,
		ResolvedName:        locale.ResolveDefault(task.Name, requestedLocale),
		ResolvedDescription: locale.ResolveDefault(task.Description, requestedLocale),
		Status:              string(task.Status),
		Priority:            string(task.Priority),
		DueDate:             task.DueDate,
		ParentID:            task.ParentID,
		CreatedAt:           task.CreatedAt,
		UpdatedAt:           task.UpdatedAt,
		DeletedAt:           task.DeletedAt,
	}
}

// NewTaskResponses converts a slice of domain tasks.
func NewTaskResponses(tasks []*domain.Task, requestedLocale string) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t, requestedLocale))
	}
	return out
}
