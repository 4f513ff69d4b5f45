package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/precrastine/internal/agenda"
	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/store"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewTaskHandler(ts *store.TaskStore, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, validate: newValidator(), logger: logger, now: time.Now}
}

type createTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category    string  `json:"category" validate:"max=50"`
	DueDate     *string `json:"dueDate"`
}

// updateTaskRequest leaves nil fields untouched. An empty dueDate clears it.
type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority" validate:"omitnil,oneof=low medium high"`
	Category    *string `json:"category" validate:"omitnil,min=1,max=50"`
	DueDate     *string `json:"dueDate"`
}

type taskResponse struct {
	Success bool        `json:"success"`
	Task    *model.Task `json:"task"`
}

// List serves the current identity's tasks narrowed by the q, filter,
// priority, completed and due query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filter, ok := agenda.ParseFilter(params.Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be one of: all, today, tomorrow, completed")
		return
	}
	q := agenda.Query{Text: params.Get("q"), Filter: filter}

	if p := params.Get("priority"); p != "" {
		q.Priority = model.Priority(strings.ToLower(p))
		if !q.Priority.Valid() {
			writeError(w, http.StatusBadRequest, "priority must be one of: low, medium, high")
			return
		}
	}
	if c := params.Get("completed"); c != "" {
		completed, err := strconv.ParseBool(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		q.Completed = &completed
	}
	if d := params.Get("due"); d != "" {
		due, err := parseDueDate(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Due = &due
	}

	tasks, err := h.tasks.List()
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Task{"tasks": agenda.Apply(tasks, q, h.now())})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: task})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	fields := model.TaskFields{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		Category:    req.Category,
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fields.DueDate = &due
	}

	task, err := h.tasks.Add(fields)
	if errors.Is(err, store.ErrInvalidPriority) {
		writeError(w, http.StatusBadRequest, "priority must be one of: low, medium, high")
		return
	}
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, taskResponse{Success: true, Task: task})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = trimPtr(req.Title)
	req.Category = trimPtr(req.Category)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	u := model.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Category:    req.Category,
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		u.Priority = &p
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			u.ClearDueDate = true
		} else {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			u.DueDate = &due
		}
	}

	task, err := h.tasks.Update(r.PathValue("id"), u)
	if errors.Is(err, store.ErrInvalidPriority) {
		writeError(w, http.StatusBadRequest, "priority must be one of: low, medium, high")
		return
	}
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: task})
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Toggle(r.PathValue("id"))
	if err != nil {
		h.logger.Error("toggle task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Success: true, Task: task})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.tasks.Delete(r.PathValue("id"))
	if err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
