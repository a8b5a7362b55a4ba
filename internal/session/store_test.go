package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonata/pkg/models"
)

func TestStoreStartsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.toml"))
	require.NoError(t, err)

	_, ok := store.Current()
	assert.False(t, ok)
	assert.Empty(t, store.Token())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	store, err := NewStore(path)
	require.NoError(t, err)

	user := models.User{ID: 3, Name: "Ada", Email: "ada@example.com", Role: models.RoleUser}
	require.NoError(t, store.Save("token-abc", user))

	sess, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "token-abc", sess.Token)
	assert.Equal(t, "ada@example.com", sess.User.Email)

	// A fresh store picks the session up from disk.
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	sess, ok = reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, "token-abc", sess.Token)
	assert.Equal(t, 3, sess.User.ID)
}

func TestSessionFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("secret", models.User{ID: 1}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestClearRemovesSessionAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("token", models.User{ID: 1}))

	require.NoError(t, store.Clear())

	_, ok := store.Current()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestClearWithoutFileSucceeds(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.toml"))
	require.NoError(t, err)

	assert.NoError(t, store.Clear())
}

func TestCorruptSessionFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0600))

	_, err := NewStore(path)
	assert.Error(t, err)
}
