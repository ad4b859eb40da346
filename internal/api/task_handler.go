package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/api/middleware"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/domain/locale"
	"github.com/tasknest/tasknest/internal/service"
	"github.com/tasknest/tasknest/internal/store"
)

// TaskHandler exposes the task service over HTTP.
type TaskHandler struct {
	service service.TaskService
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. If logger is nil, a default
// logger will be used.
func NewTaskHandler(svc service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		service: svc,
		logger:  logger.With(slog.String("component", "task_handler")),
	}
}

// RegisterRoutes mounts the task endpoints. All routes require a resolved
// owner identity.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOwner)
		r.Post("/tasks", h.Create)
		r.Get("/tasks", h.List)
		r.Get("/tasks/stats", h.Stats)
		r.Get("/tasks/{taskID}", h.GetDetail)
		r.Patch("/tasks/{taskID}", h.Update)
		r.Delete("/tasks/{taskID}", h.SoftDelete)
		r.Post("/tasks/{taskID}/restore", h.Restore)
		r.Put("/tasks/{taskID}/parent", h.Reparent)
	})
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.CreateTaskInput{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
		ParentID:    req.ParentID,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		input.Priority = &p
	}

	task, err := h.service.Create(r.Context(), middleware.OwnerFromContext(r.Context()), input)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, NewTaskResponse(task, requestedLocale(r)))
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	tasks, total, err := h.service.List(r.Context(), middleware.OwnerFromContext(r.Context()), filter)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks: NewTaskResponses(tasks, requestedLocale(r)),
		Total: total,
	})
}

// GetDetail handles GET /tasks/{taskID}.
func (h *TaskHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	task, err := h.service.GetDetail(r.Context(), middleware.OwnerFromContext(r.Context()), taskID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewTaskResponse(task, requestedLocale(r)))
}

// Update handles PATCH /tasks/{taskID}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.UpdateTaskInput{
		Name:         req.Name,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Description != nil {
		desc := domain.LocalizedText(*req.Description)
		input.Description = &desc
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		input.Status = &s
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		input.Priority = &p
	}

	task, err := h.service.Update(r.Context(), middleware.OwnerFromContext(r.Context()), taskID, input)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewTaskResponse(task, requestedLocale(r)))
}

// SoftDelete handles DELETE /tasks/{taskID}.
func (h *TaskHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	task, err := h.service.SoftDelete(r.Context(), middleware.OwnerFromContext(r.Context()), taskID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewTaskResponse(task, requestedLocale(r)))
}

// Restore handles POST /tasks/{taskID}/restore.
func (h *TaskHandler) Restore(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	task, err := h.service.Restore(r.Context(), middleware.OwnerFromContext(r.Context()), taskID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewTaskResponse(task, requestedLocale(r)))
}

// Reparent handles PUT /tasks/{taskID}/parent.
func (h *TaskHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	var req ReparentTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	task, err := h.service.Reparent(r.Context(), middleware.OwnerFromContext(r.Context()), taskID, req.ParentID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewTaskResponse(task, requestedLocale(r)))
}

// Stats handles GET /tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

func taskIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		return uuid.Nil, store.ErrTaskNotFound
	}
	return id, nil
}

// requestedLocale picks the locale for resolved text fields: the "locale"
// query parameter when present, else the default.
func requestedLocale(r *http.Request) string {
	if loc := r.URL.Query().Get("locale"); loc != "" {
		return loc
	}
	return locale.Default
}

// parseFilter builds a FilterSpec from the listing query parameters.
func parseFilter(r *http.Request) (store.FilterSpec, error) {
	q := r.URL.Query()
	var filter store.FilterSpec

	for _, s := range splitCSV(q.Get("status")) {
		status := domain.TaskStatus(s)
		if !status.IsValid() {
			return filter, domain.NewValidationError(domain.CodeInvalidStatus, "status",
				"unknown status "+s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range splitCSV(q.Get("priority")) {
		priority := domain.TaskPriority(p)
		if !priority.IsValid() {
			return filter, domain.NewValidationError(domain.CodeInvalidPriority, "priority",
				"unknown priority "+p)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}

	switch q.Get("scope") {
	case "roots":
		filter.ParentScope = store.ScopeRoots
	case "children":
		filter.ParentScope = store.ScopeChildren
		parentID, err := uuid.Parse(q.Get("parent_id"))
		if err != nil {
			return filter, domain.NewValidationError(domain.CodeEmptyField, "parent_id",
				"scope=children requires a valid parent_id")
		}
		filter.ParentID = &parentID
	}

	for name, dst := range map[string]**time.Time{"due_after": &filter.DueAfter, "due_before": &filter.DueBefore} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return filter, domain.NewValidationError(domain.CodeEmptyField, name,
					"must be an RFC 3339 timestamp")
			}
			*dst = &t
		}
	}

	filter.Search = q.Get("q")
	filter.IncludeDeleted = q.Get("include_deleted") == "true"
	filter.SortBy = store.SortField(q.Get("sort"))
	filter.SortDir = store.SortDirection(q.Get("dir"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	return filter, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
