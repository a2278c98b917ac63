package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/model"
)

// TaskEvents receives one call per successful task mutation.
// *metrics.Metrics implements it.
type TaskEvents interface {
	TaskMutation(op string)
}

// TaskService handles the task list of whoever is active in the session.
//
// MUTATION PATTERN:
// Every mutation follows the same three steps:
//
//  1. copy the in-memory partition and apply the change to the copy
//  2. persist the whole copy
//  3. swap the copy in (Session.commit)
//
// If step 2 fails the in-memory list is untouched, so memory never gets
// ahead of storage.
type TaskService struct {
	session *Session
	events  TaskEvents
	logger  *slog.Logger
}

// NewTaskService creates a TaskService operating on session. events may be nil.
func NewTaskService(session *Session, events TaskEvents, logger *slog.Logger) *TaskService {
	return &TaskService{
		session: session,
		events:  events,
		logger:  logger,
	}
}

// List returns the active partition in insertion order. The slice is a copy.
func (s *TaskService) List() []model.Task {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()
	return cloneTasks(s.session.list)
}

// Add appends a new task to the active partition.
func (s *TaskService) Add(ctx context.Context, fields model.TaskFields) (*model.Task, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	task := model.Task{
		ID:                    xid.New().String(),
		Title:                 fields.Title,
		Description:           fields.Description,
		Date:                  fields.Date,
		Time:                  fields.Time,
		ReminderEnabled:       fields.ReminderEnabled,
		ReminderOffsetMinutes: fields.ReminderOffset(),
		CreatedAt:             s.session.now(),
	}

	next := append(cloneTasks(s.session.list), task)
	if err := s.session.commit(ctx, next); err != nil {
		s.logger.Error("failed to add task", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("task added",
		slog.String("id", task.ID),
		slog.String("owner", ownerLabel(s.session.owner())),
	)
	s.record("add")
	return &task, nil
}

// Update overwrites the editable fields of a task. id, done, createdAt and
// completedAt are never touched.
func (s *TaskService) Update(ctx context.Context, id string, fields model.TaskFields) (*model.Task, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	next := cloneTasks(s.session.list)
	i := indexOf(next, id)
	if i < 0 {
		return nil, apperror.NotFound("task", id)
	}

	t := &next[i]
	t.Title = fields.Title
	t.Description = fields.Description
	t.Date = fields.Date
	t.Time = fields.Time
	t.ReminderEnabled = fields.ReminderEnabled
	t.ReminderOffsetMinutes = fields.ReminderOffset()

	if err := s.session.commit(ctx, next); err != nil {
		s.logger.Error("failed to update task", slog.String("id", id), slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("task updated", slog.String("id", id))
	s.record("update")
	updated := next[i]
	return &updated, nil
}

// Toggle flips the done flag of a task and stamps or clears completedAt.
func (s *TaskService) Toggle(ctx context.Context, id string) (*model.Task, error) {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	next := cloneTasks(s.session.list)
	i := indexOf(next, id)
	if i < 0 {
		return nil, apperror.NotFound("task", id)
	}

	t := &next[i]
	t.Done = !t.Done
	if t.Done {
		now := s.session.now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}

	if err := s.session.commit(ctx, next); err != nil {
		s.logger.Error("failed to toggle task", slog.String("id", id), slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("task toggled", slog.String("id", id), slog.Bool("done", t.Done))
	s.record("toggle")
	toggled := next[i]
	return &toggled, nil
}

// Delete removes a task from the active partition.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	i := indexOf(s.session.list, id)
	if i < 0 {
		return apperror.NotFound("task", id)
	}
	next := slices.Delete(cloneTasks(s.session.list), i, i+1)

	if err := s.session.commit(ctx, next); err != nil {
		s.logger.Error("failed to delete task", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("task deleted", slog.String("id", id))
	s.record("delete")
	return nil
}

// Progress returns the done/total counter of the active partition.
func (s *TaskService) Progress() model.Progress {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	done, total := model.CountDone(s.session.list), len(s.session.list)
	return model.Progress{
		Done:    done,
		Total:   total,
		Percent: model.Percent(done, total),
	}
}

// Reload re-reads the active partition (and identity) from storage.
func (s *TaskService) Reload(ctx context.Context) error {
	return s.session.Reload(ctx)
}

func (s *TaskService) record(op string) {
	if s.events != nil {
		s.events.TaskMutation(op)
	}
}

// normalizeFields trims the free-text fields and checks the rules shared by
// add and edit.
func normalizeFields(f model.TaskFields) (model.TaskFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Date = strings.TrimSpace(f.Date)
	f.Time = strings.TrimSpace(f.Time)

	if f.Title == "" {
		return f, apperror.ValidationFailed("title", "Task title is required")
	}
	if f.ReminderOffsetMinutes != nil && *f.ReminderOffsetMinutes < 0 {
		return f, apperror.ValidationFailed("reminderOffsetMinutes", "reminder offset must not be negative")
	}
	if f.ReminderOffsetMinutes != nil && *f.ReminderOffsetMinutes > model.MaxReminderOffset {
		return f, apperror.ValidationFailed("reminderOffsetMinutes", "reminder offset must be at most one year")
	}
	return f, nil
}

func indexOf(tasks []model.Task, id string) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}

// cloneTasks deep-copies a partition, including the CompletedAt pointers.
func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].CompletedAt != nil {
			c := *out[i].CompletedAt
			out[i].CompletedAt = &c
		}
	}
	return out
}
