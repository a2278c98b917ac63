package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/mylist/internal/kv"
	"github.com/sakif/mylist/internal/model"
	"github.com/sakif/mylist/internal/reminder"
	"github.com/sakif/mylist/internal/repository/kvstore"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// The services run against the real kvstore on top of an in-memory kv
// store. flakyKV sits in between so a test can make writes fail.

var errDiskFull = errors.New("disk full")

type flakyKV struct {
	*kv.Memory
	failSet    bool
	failSetKey string
	failDelete bool
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.failSet || (f.failSetKey != "" && key == f.failSetKey) {
		return errDiskFull
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errDiskFull
	}
	return f.Memory.Delete(ctx, key)
}

// raw reads a key straight from the backing store.
func (f *flakyKV) raw(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.Memory.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduleCall
}

type scheduleCall struct {
	owner model.Owner
	tasks []model.Task
}

func (f *fakeScheduler) Reschedule(owner model.Owner, tasks []model.Task, _ time.Time) []reminder.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduleCall{owner: owner, tasks: tasks})
	return nil
}

func (f *fakeScheduler) last() scheduleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeEvents struct {
	tasks    []string
	accounts []string
}

func (f *fakeEvents) TaskMutation(op string)    { f.tasks = append(f.tasks, op) }
func (f *fakeEvents) AccountEvent(event string) { f.accounts = append(f.accounts, event) }

var fixedNow = time.Date(2024, 6, 10, 8, 50, 0, 0, time.UTC)

type testEnv struct {
	kv        *flakyKV
	store     *kvstore.Store
	session   *Session
	accounts  *AccountService
	tasks     *TaskService
	scheduler *fakeScheduler
	events    *fakeEvents
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, &flakyKV{Memory: kv.NewMemory()})
}

// newTestEnvOn builds fresh services over an existing store, the way a
// restart would.
func newTestEnvOn(t *testing.T, backing *flakyKV) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := kvstore.New(backing, kvstore.DefaultPrefix)
	sched := &fakeScheduler{}
	events := &fakeEvents{}

	session := NewSession(store.Sessions(), store.Users(), store.Tasks(), logger,
		WithScheduler(sched),
		WithClock(func() time.Time { return fixedNow }),
	)
	return &testEnv{
		kv:        backing,
		store:     store,
		session:   session,
		accounts:  NewAccountService(session, events, logger),
		tasks:     NewTaskService(session, events, logger),
		scheduler: sched,
		events:    events,
	}
}

func lina() Registration {
	return Registration{Name: "Lina", Email: "lina@example.com", Birth: "1999-04-02", Gender: model.GenderFemale}
}

func (e *testEnv) register(t *testing.T, reg Registration) {
	t.Helper()
	_, err := e.accounts.Register(context.Background(), reg, "secret1", "secret1")
	require.NoError(t, err)
}

func (e *testEnv) add(t *testing.T, title string) *model.Task {
	t.Helper()
	task, err := e.tasks.Add(context.Background(), model.TaskFields{Title: title})
	require.NoError(t, err)
	return task
}

func intPtr(n int) *int { return &n }
