package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/model"
)

// =========================================================================
// Register
// =========================================================================

func TestRegister_SignsInAndDiscardsGuestTasks(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "guest task")

	user, err := env.accounts.Register(context.Background(), lina(), "secret1", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "lina@example.com", user.Email)
	assert.Equal(t, model.Owner("lina@example.com"), env.session.Owner())
	assert.Empty(t, env.tasks.List(), "guest tasks are not carried over")

	_, ok := env.kv.raw(t, "mylist_guest_tasks")
	assert.False(t, ok, "guest partition discarded")
	ptr, _ := env.kv.raw(t, "mylist_current_user")
	assert.Equal(t, "lina@example.com", ptr)

	assert.Equal(t, model.Owner("lina@example.com"), env.scheduler.last().owner)
	assert.Equal(t, []string{"register"}, env.events.accounts)
}

func TestRegister_Normalizes(t *testing.T) {
	env := newTestEnv(t)
	reg := Registration{Name: "  Omar ", Email: " omar@example.com "}

	user, err := env.accounts.Register(context.Background(), reg, "secret1", "secret1")

	require.NoError(t, err)
	assert.Equal(t, "Omar", user.Name)
	assert.Equal(t, "omar@example.com", user.Email)
	assert.Equal(t, model.GenderOther, user.Gender)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		reg      Registration
		password string
		confirm  string
		field    string
	}{
		{"missing name", Registration{Email: "a@b.c"}, "secret1", "secret1", ""},
		{"blank email", Registration{Name: "A", Email: "  "}, "secret1", "secret1", ""},
		{"missing password", Registration{Name: "A", Email: "a@b.c"}, "", "secret1", ""},
		{"missing confirm", Registration{Name: "A", Email: "a@b.c"}, "secret1", "", ""},
		{"short password", Registration{Name: "A", Email: "a@b.c"}, "abc", "abc", "password"},
		{"five multibyte runes", Registration{Name: "A", Email: "a@b.c"}, "ééééé", "ééééé", "password"},
		{"mismatch", Registration{Name: "A", Email: "a@b.c"}, "secret1", "secret2", "confirm"},
		{"bad gender", Registration{Name: "A", Email: "a@b.c", Gender: "robot"}, "secret1", "secret1", "gender"},
		{"bad birth", Registration{Name: "A", Email: "a@b.c", Birth: "02/04/1999"}, "secret1", "secret1", "birth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.accounts.Register(context.Background(), tt.reg, tt.password, tt.confirm)

			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Zero(t, env.kv.Len(), "no account persisted")
			assert.True(t, env.session.Owner().IsGuest())
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())
	require.NoError(t, env.accounts.Logout(context.Background()))

	_, err := env.accounts.Register(context.Background(), lina(), "another1", "another1")

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.True(t, env.session.Owner().IsGuest())
}

func TestRegister_SignInFailureRemovesAccount(t *testing.T) {
	env := newTestEnv(t)
	env.kv.failSetKey = "mylist_current_user"

	_, err := env.accounts.Register(context.Background(), lina(), "secret1", "secret1")

	require.ErrorIs(t, err, errDiskFull)
	_, ok := env.kv.raw(t, "mylist_user_lina@example.com")
	assert.False(t, ok, "account record rolled back")
	assert.True(t, env.session.Owner().IsGuest())

	env.kv.failSetKey = ""
	user, err := env.accounts.Register(context.Background(), lina(), "secret1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "lina@example.com", user.Email)
}

// =========================================================================
// Login
// =========================================================================

func TestLogin_LoadsUserTasks(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())
	env.add(t, "lina's task")
	require.NoError(t, env.accounts.Logout(context.Background()))
	env.add(t, "guest task")

	user, err := env.accounts.Login(context.Background(), "lina@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "Lina", user.Name)
	list := env.tasks.List()
	require.Len(t, list, 1)
	assert.Equal(t, "lina's task", list[0].Title)
	_, ok := env.kv.raw(t, "mylist_guest_tasks")
	assert.False(t, ok)
}

func TestLogin_WrongPasswordKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())
	require.NoError(t, env.accounts.Logout(context.Background()))
	env.add(t, "guest task")
	calls := len(env.scheduler.calls)

	_, err := env.accounts.Login(context.Background(), "lina@example.com", "wrong!!")

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.True(t, env.session.Owner().IsGuest())
	assert.Len(t, env.tasks.List(), 1)
	assert.Len(t, env.scheduler.calls, calls, "no reschedule on failure")
	_, ok := env.kv.raw(t, "mylist_current_user")
	assert.False(t, ok)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", apperror.ErrValidation},
		{"empty password", "lina@example.com", "", apperror.ErrValidation},
		{"unknown account", "ghost@example.com", "secret1", apperror.ErrNotFound},
		{"email is case-sensitive", "Lina@example.com", "secret1", apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.register(t, lina())
			require.NoError(t, env.accounts.Logout(context.Background()))

			_, err := env.accounts.Login(context.Background(), tt.email, tt.password)

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_CorruptAccount(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.kv.Set(context.Background(), "mylist_user_lina@example.com", "{oops"))

	_, err := env.accounts.Login(context.Background(), "lina@example.com", "secret1")

	assert.ErrorIs(t, err, apperror.ErrCorrupt)
	assert.True(t, env.session.Owner().IsGuest())
}

// =========================================================================
// Logout
// =========================================================================

func TestLogout_RevertsToGuestAndKeepsData(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())
	env.add(t, "kept")

	require.NoError(t, env.accounts.Logout(context.Background()))

	assert.True(t, env.session.Owner().IsGuest())
	assert.Empty(t, env.tasks.List())
	assert.True(t, env.accounts.Profile().Guest)
	_, ok := env.kv.raw(t, "mylist_user_lina@example.com")
	assert.True(t, ok)
	raw, _ := env.kv.raw(t, "mylist_tasks_lina@example.com")
	assert.Contains(t, raw, "kept")
	assert.True(t, env.scheduler.last().owner.IsGuest())
}

// =========================================================================
// DeleteAccount
// =========================================================================

func TestDeleteAccount_RemovesBothPartitions(t *testing.T) {
	env := newTestEnv(t)
	// Registration discards the guest list, so seed one afterwards.
	env.register(t, lina())
	env.add(t, "a")
	env.add(t, "b")
	guest := []model.Task{{ID: "g1", Title: "guest", CreatedAt: fixedNow}}
	require.NoError(t, env.store.Tasks().Save(context.Background(), model.Guest, guest))

	require.NoError(t, env.accounts.DeleteAccount(context.Background(), true))

	_, ok := env.kv.raw(t, "mylist_user_lina@example.com")
	assert.False(t, ok)
	_, ok = env.kv.raw(t, "mylist_tasks_lina@example.com")
	assert.False(t, ok)
	_, ok = env.kv.raw(t, "mylist_current_user")
	assert.False(t, ok)

	assert.True(t, env.session.Owner().IsGuest())
	assert.Equal(t, guest, env.tasks.List(), "guest partition untouched")
}

func TestDeleteAccount_Unconfirmed(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())

	require.NoError(t, env.accounts.DeleteAccount(context.Background(), false))

	assert.Equal(t, model.Owner("lina@example.com"), env.session.Owner())
	_, ok := env.kv.raw(t, "mylist_user_lina@example.com")
	assert.True(t, ok)
}

func TestDeleteAccount_Guest(t *testing.T) {
	env := newTestEnv(t)

	err := env.accounts.DeleteAccount(context.Background(), true)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDeleteAccount_WriteFailureKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, lina())
	env.kv.failDelete = true

	err := env.accounts.DeleteAccount(context.Background(), true)

	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, model.Owner("lina@example.com"), env.session.Owner())
}

// =========================================================================
// Profile / session reload
// =========================================================================

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, model.GuestProfile(), env.accounts.Profile())

	env.register(t, lina())

	p := env.accounts.Profile()
	assert.False(t, p.Guest)
	assert.Equal(t, "Lina", p.Name)
	assert.Equal(t, "👩", p.Avatar.Placeholder)
	assert.Equal(t, "lina@example.com", env.accounts.CurrentEmail())
}

func TestReload_StalePointerRevertsToGuest(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.kv.Set(context.Background(), "mylist_current_user", "gone@example.com"))

	require.NoError(t, env.session.Reload(context.Background()))

	assert.True(t, env.session.Owner().IsGuest())
	_, ok := env.kv.raw(t, "mylist_current_user")
	assert.False(t, ok)
}

func TestReload_CorruptAccountStaysGuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.kv.Set(ctx, "mylist_current_user", "lina@example.com"))
	require.NoError(t, env.kv.Set(ctx, "mylist_user_lina@example.com", "not json"))

	err := env.session.Reload(ctx)

	assert.ErrorIs(t, err, apperror.ErrCorrupt)
	assert.True(t, env.session.Owner().IsGuest())
	ptr, _ := env.kv.raw(t, "mylist_current_user")
	assert.Equal(t, "lina@example.com", ptr, "pointer left for inspection")
}
