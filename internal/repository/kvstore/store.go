// Package kvstore implements the repository interfaces on a kv.Store.
//
// KEY SPACE:
// All keys share a configurable prefix (default "mylist_"):
//
//	<prefix>current_user     email of the active account (absent = guest)
//	<prefix>user_<email>     account record
//	<prefix>tasks_<email>    the account's task list
//	<prefix>guest_tasks      the guest task list
//
// Values are JSON envelopes, see codec.go.
package kvstore

import (
	"context"
	"fmt"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/kv"
	"github.com/sakif/mylist/internal/model"
	"github.com/sakif/mylist/internal/repository"
)

// DefaultPrefix matches the keys the browser app wrote.
const DefaultPrefix = "mylist_"

var (
	_ repository.SessionRepository = (*SessionStore)(nil)
	_ repository.UserRepository    = (*UserStore)(nil)
	_ repository.TaskRepository    = (*TaskStore)(nil)
)

// Store maps repository calls onto keys of a kv.Store. It hands out one
// typed view per repository interface; all views share the kv.Store and
// the prefix.
type Store struct {
	kv     kv.Store
	prefix string
}

// New returns a Store writing under prefix.
func New(store kv.Store, prefix string) *Store {
	return &Store{kv: store, prefix: prefix}
}

// SessionStore implements repository.SessionRepository.
type SessionStore struct{ *Store }

// UserStore implements repository.UserRepository.
type UserStore struct{ *Store }

// TaskStore implements repository.TaskRepository.
type TaskStore struct{ *Store }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s} }
func (s *Store) Users() *UserStore       { return &UserStore{s} }
func (s *Store) Tasks() *TaskStore       { return &TaskStore{s} }

func (s *Store) currentUserKey() string { return s.prefix + "current_user" }

func (s *Store) userKey(email string) string { return s.prefix + "user_" + email }

func (s *Store) tasksKey(owner model.Owner) string {
	if owner.IsGuest() {
		return s.prefix + "guest_tasks"
	}
	return s.prefix + "tasks_" + string(owner)
}

// ---------------------------------------------------------------------------
// session pointer
// ---------------------------------------------------------------------------

func (s *SessionStore) CurrentUser(ctx context.Context) (string, bool, error) {
	email, ok, err := s.kv.Get(ctx, s.currentUserKey())
	if err != nil {
		return "", false, fmt.Errorf("kvstore: reading session pointer: %w", err)
	}
	if !ok || email == "" {
		return "", false, nil
	}
	return email, true, nil
}

func (s *SessionStore) SetCurrentUser(ctx context.Context, email string) error {
	if err := s.kv.Set(ctx, s.currentUserKey(), email); err != nil {
		return fmt.Errorf("kvstore: writing session pointer: %w", err)
	}
	return nil
}

func (s *SessionStore) ClearCurrentUser(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.currentUserKey()); err != nil {
		return fmt.Errorf("kvstore: clearing session pointer: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// accounts
// ---------------------------------------------------------------------------

// Create stores a new account. Any existing value under the key counts as
// taken, even one that no longer decodes.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	key := s.userKey(user.Email)
	_, exists, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("kvstore: checking account %s: %w", user.Email, err)
	}
	if exists {
		return apperror.Conflict("account", user.Email)
	}

	raw, err := encodeUser(user)
	if err != nil {
		return fmt.Errorf("kvstore: encoding account %s: %w", user.Email, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("kvstore: writing account %s: %w", user.Email, err)
	}
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	key := s.userKey(email)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("kvstore: reading account %s: %w", email, err)
	}
	if !ok {
		return nil, apperror.NotFound("account", email)
	}

	user, err := decodeUser(raw)
	if err != nil {
		return nil, apperror.Corrupt("account", key, err)
	}
	return user, nil
}

func (s *UserStore) Delete(ctx context.Context, email string) error {
	if err := s.kv.Delete(ctx, s.userKey(email)); err != nil {
		return fmt.Errorf("kvstore: deleting account %s: %w", email, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// task partitions
// ---------------------------------------------------------------------------

// Load reads a partition. A partition that was never written is empty.
func (s *TaskStore) Load(ctx context.Context, owner model.Owner) ([]model.Task, error) {
	key := s.tasksKey(owner)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("kvstore: reading tasks %s: %w", key, err)
	}
	if !ok {
		return []model.Task{}, nil
	}

	tasks, err := decodeTasks(raw)
	if err != nil {
		return nil, apperror.Corrupt("tasks", key, err)
	}
	return tasks, nil
}

func (s *TaskStore) Save(ctx context.Context, owner model.Owner, tasks []model.Task) error {
	key := s.tasksKey(owner)
	raw, err := encodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("kvstore: encoding tasks %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("kvstore: writing tasks %s: %w", key, err)
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, owner model.Owner) error {
	key := s.tasksKey(owner)
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("kvstore: deleting tasks %s: %w", key, err)
	}
	return nil
}
