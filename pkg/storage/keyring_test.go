package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringCredentialStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringCredentialStore()

	require.NoError(t, store.Set("api-token", "s3cret"))

	value, err := store.Get("api-token")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Contains(t, keys, "api-token")

	require.NoError(t, store.Delete("api-token"))
	_, err = store.Get("api-token")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	keys, err = store.List()
	require.NoError(t, err)
	assert.NotContains(t, keys, "api-token")
}

func TestKeyringCredentialStore_EmptyKey(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringCredentialStore()

	assert.Error(t, store.Set("", "x"))
	_, err := store.Get("")
	assert.Error(t, err)
	assert.Error(t, store.Delete(""))
}
