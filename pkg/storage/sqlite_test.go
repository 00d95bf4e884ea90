package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()
	store, err := NewSQLiteSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSessionStore(t *testing.T) {
	exerciseStore(t, newTestSQLiteStore(t))
}

func TestSQLiteSessionStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteSessionStore(dbPath)
	require.NoError(t, err)

	s := NewSession("@alice:example.test", "onboarding")
	s.NodeID = "ask-name"
	s.SetVariable("step", "greeting")
	require.NoError(t, store.Put(ctx, s))
	require.NoError(t, store.Close())

	store, err = NewSQLiteSessionStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "ask-name", got.NodeID)
	v, ok := got.GetVariable("step")
	require.True(t, ok)
	assert.Equal(t, "greeting", v)
}
