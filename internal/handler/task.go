package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mylist/internal/model"
	"github.com/sakif/mylist/internal/service"
)

// TaskHandler serves the task list of the active session.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// TaskListResponse is what the task page renders from.
type TaskListResponse struct {
	Tasks    []model.Task   `json:"tasks"`
	Progress model.Progress `json:"progress"`
}

// HandleList returns the tasks in insertion order plus the progress bar.
//
// HTTP: GET /api/tasks
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tasks := h.tasks.List()
	done := model.CountDone(tasks)
	writeJSON(w, http.StatusOK, TaskListResponse{
		Tasks:    tasks,
		Progress: model.Progress{Done: done, Total: len(tasks), Percent: model.Percent(done, len(tasks))},
	})
}

// HandleCreate adds a task.
//
// HTTP: POST /api/tasks
// BODY: {"title":"Buy milk","date":"2024-06-10","time":"09:00","reminderEnabled":true,"reminderOffsetMinutes":5}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var fields model.TaskFields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Add(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleUpdate replaces the editable fields of a task.
//
// HTTP: PUT /api/tasks/{id}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var fields model.TaskFields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleToggle flips a task between done and not done.
//
// HTTP: POST /api/tasks/{id}/toggle
func (h *TaskHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleProgress returns the done/total counter.
//
// HTTP: GET /api/progress
func (h *TaskHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.Progress())
}
