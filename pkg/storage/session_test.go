package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := NewSession("@alice:example.test", "onboarding")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateActive, s.State)
	assert.Empty(t, s.NodeID)
	assert.NotNil(t, s.Variables)
}

func TestSession_Variables(t *testing.T) {
	s := NewSession("@alice:example.test", "onboarding")
	s.SetVariable("name", "Alice")

	v, ok := s.GetVariable("name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	_, ok = s.GetVariable("missing")
	assert.False(t, ok)
}

func TestSession_CloneIsolation(t *testing.T) {
	s := NewSession("@alice:example.test", "onboarding")
	s.SetVariable("count", 1)

	cp := s.Clone()
	cp.SetVariable("count", 2)
	cp.NodeID = "elsewhere"

	v, _ := s.GetVariable("count")
	assert.Equal(t, 1, v)
	assert.Empty(t, s.NodeID)
}

// exerciseStore runs the shared contract every SessionStore must satisfy.
func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s := NewSession("@alice:example.test", "onboarding")
	s.NodeID = "ask-name"
	s.State = StateAwaitingInput
	s.SetVariable("greeted", true)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "ask-name", got.NodeID)
	assert.Equal(t, StateAwaitingInput, got.State)
	v, ok := got.GetVariable("greeted")
	require.True(t, ok)
	assert.Equal(t, true, v)

	byUser, err := store.GetByUser(ctx, "@alice:example.test", "onboarding")
	require.NoError(t, err)
	assert.Equal(t, s.ID, byUser.ID)

	_, err = store.GetByUser(ctx, "@alice:example.test", "other-flow")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Replace and re-read.
	s.NodeID = "done"
	s.State = StateCompleted
	require.NoError(t, store.Put(ctx, s))
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.NodeID)
	assert.Equal(t, StateCompleted, got.State)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, s.ID))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestMemorySessionStore_PutIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	s := NewSession("@alice:example.test", "onboarding")
	require.NoError(t, store.Put(ctx, s))

	// Mutating the caller's copy after Put must not leak into the store.
	s.SetVariable("leak", true)
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	_, ok := got.GetVariable("leak")
	assert.False(t, ok)
}
