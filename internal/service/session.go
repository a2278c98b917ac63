// Package service contains the business logic layer of the application.
//
// THE LAYERS:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the key-value store
//
// ONE SESSION, TWO STORES:
// The application is single-user. Whoever is signed in (or the guest) owns
// exactly one task partition at a time. That state lives in a Session, and
// both AccountService and TaskService operate on the same Session:
//
//	AccountService ─┐
//	                ├─► Session ─► SessionRepository / UserRepository / TaskRepository
//	TaskService ────┘       └────► ReminderScheduler
//
// Every public operation takes the Session lock for its whole duration, so
// concurrent HTTP requests run one after another, each to completion.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/model"
	"github.com/sakif/mylist/internal/reminder"
	"github.com/sakif/mylist/internal/repository"
)

// ReminderScheduler is told about the active partition after every change
// to it. reminder.Scheduler is the production implementation.
type ReminderScheduler interface {
	Reschedule(owner model.Owner, tasks []model.Task, now time.Time) []reminder.Reminder
}

// Session is the active identity plus its in-memory task partition.
//
// The in-memory copy always mirrors what was last successfully written:
// mutations build a new slice, persist it, and only then swap it in.
type Session struct {
	mu sync.Mutex

	sessions repository.SessionRepository
	users    repository.UserRepository
	tasks    repository.TaskRepository

	scheduler ReminderScheduler
	now       func() time.Time
	logger    *slog.Logger

	user *model.User // nil while in guest mode
	list []model.Task
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithScheduler attaches the reminder scheduler.
func WithScheduler(s ReminderScheduler) SessionOption {
	return func(sess *Session) { sess.scheduler = s }
}

// WithClock replaces time.Now. Tests use it to pin createdAt/completedAt.
func WithClock(now func() time.Time) SessionOption {
	return func(sess *Session) { sess.now = now }
}

// NewSession creates a guest session. Call Reload to pick up the identity
// persisted by a previous run.
func NewSession(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	logger *slog.Logger,
	opts ...SessionOption,
) *Session {
	s := &Session{
		sessions: sessions,
		users:    users,
		tasks:    tasks,
		now:      time.Now,
		logger:   logger,
		list:     []model.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload re-reads the session pointer, the account it names and that
// account's task partition.
//
//   - no pointer                → guest, guest partition
//   - pointer to a missing user → pointer cleared, guest
//   - pointer to a corrupt user → guest in memory, pointer left alone,
//     the corrupt-data error is returned
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

func (s *Session) reload(ctx context.Context) error {
	email, ok, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("service/session: reading session pointer: %w", err)
	}

	var (
		user    *model.User
		userErr error
	)
	if ok {
		user, err = s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
		case errors.Is(err, apperror.ErrNotFound):
			s.logger.Warn("session points at a missing account, reverting to guest",
				slog.String("email", email))
			if err := s.sessions.ClearCurrentUser(ctx); err != nil {
				return fmt.Errorf("service/session: clearing stale pointer: %w", err)
			}
			user = nil
		case errors.Is(err, apperror.ErrCorrupt):
			s.logger.Error("active account record is corrupt, staying in guest mode",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			user, userErr = nil, err
		default:
			return fmt.Errorf("service/session: loading account %s: %w", email, err)
		}
	}

	owner := model.Guest
	if user != nil {
		owner = model.Owner(user.Email)
	}
	list, err := s.loadPartition(ctx, owner)
	if err != nil {
		return err
	}

	s.user = user
	s.list = list
	s.reschedule()
	return userErr
}

// loadPartition reads a task list and fails open: a corrupt list loads as
// empty and is overwritten by the next successful mutation.
func (s *Session) loadPartition(ctx context.Context, owner model.Owner) ([]model.Task, error) {
	list, err := s.tasks.Load(ctx, owner)
	if err == nil {
		return list, nil
	}
	if errors.Is(err, apperror.ErrCorrupt) {
		s.logger.Warn("task list is corrupt, starting empty",
			slog.String("owner", ownerLabel(owner)),
			slog.String("error", err.Error()),
		)
		return []model.Task{}, nil
	}
	return nil, fmt.Errorf("service/session: loading tasks for %s: %w", ownerLabel(owner), err)
}

// owner returns the partition key of the active identity.
func (s *Session) owner() model.Owner {
	if s.user == nil {
		return model.Guest
	}
	return model.Owner(s.user.Email)
}

// commit persists list as the active partition and then makes it current.
func (s *Session) commit(ctx context.Context, list []model.Task) error {
	if err := s.tasks.Save(ctx, s.owner(), list); err != nil {
		return fmt.Errorf("service/session: saving tasks for %s: %w", ownerLabel(s.owner()), err)
	}
	s.list = list
	s.reschedule()
	return nil
}

// switchTo makes user the active identity with the given partition.
func (s *Session) switchTo(user *model.User, list []model.Task) {
	s.user = user
	s.list = list
	s.reschedule()
}

func (s *Session) reschedule() {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Reschedule(s.owner(), slices.Clone(s.list), s.now())
}

// Owner returns the partition key of the active identity.
func (s *Session) Owner() model.Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner()
}

func ownerLabel(o model.Owner) string {
	if o.IsGuest() {
		return "guest"
	}
	return string(o)
}
