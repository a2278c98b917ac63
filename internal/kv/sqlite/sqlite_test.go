package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB returns a fresh in-memory database closed at test end.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)

	v, ok, err := db.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSet_InsertThenOverwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "mylist_current_user", "a@example.com"))
	require.NoError(t, db.Set(ctx, "mylist_current_user", "b@example.com"))

	v, ok, err := db.Get(ctx, "mylist_current_user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b@example.com", v)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "k", "v"))
	require.NoError(t, db.Delete(ctx, "k"))
	require.NoError(t, db.Delete(ctx, "k"), "deleting twice should be a no-op")

	_, ok, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mylist.db")
	ctx := context.Background()

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "mylist_guest_tasks", `{"schema":1,"data":[]}`))
	require.NoError(t, db.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	v, ok, err := reopened.Get(ctx, "mylist_guest_tasks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"schema":1,"data":[]}`, v)
}
