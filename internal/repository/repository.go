// Package repository declares the persistence interfaces the services
// depend on. The implementation over a kv.Store lives in repository/kvstore.
package repository

import (
	"context"

	"github.com/sakif/mylist/internal/model"
)

// SessionRepository stores the session pointer: the email of the active
// account, or nothing while in guest mode.
type SessionRepository interface {
	CurrentUser(ctx context.Context) (email string, ok bool, err error)
	SetCurrentUser(ctx context.Context, email string) error
	ClearCurrentUser(ctx context.Context) error
}

// UserRepository stores account records keyed by email.
//
// GetByEmail returns apperror.ErrNotFound for an unknown email and
// apperror.ErrCorrupt for a record that does not decode.
// Create returns apperror.ErrConflict when the email is taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Delete(ctx context.Context, email string) error
}

// TaskRepository stores whole task partitions.
//
// Load returns an empty slice for a partition that was never written and
// apperror.ErrCorrupt when the stored list does not decode. Save replaces the
// partition in one write.
type TaskRepository interface {
	Load(ctx context.Context, owner model.Owner) ([]model.Task, error)
	Save(ctx context.Context, owner model.Owner, tasks []model.Task) error
	Delete(ctx context.Context, owner model.Owner) error
}
