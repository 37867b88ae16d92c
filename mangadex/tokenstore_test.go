package mangadex

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "token.json")
	store := NewFileTokenStore(path)
	assert.Equal(t, path, store.Path())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "a missing file holds no token")

	require.NoError(t, store.Save("refresh-abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-abc", token)

	require.NoError(t, store.Save(""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Save(""), "forgetting twice is fine")
}

func TestFileTokenStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileTokenStore(path).Load()
	assert.Error(t, err)
}

func TestSessionSeedsFromTokenStore(t *testing.T) {
	store := &memoryTokenStore{token: "stored"}
	creds := Credentials{ClientID: testClientID, ClientSecret: testClientSecret}
	env := newTestEnv(t, creds, nil, WithTokenStore(store))

	_, err := env.client.Session().Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh_token"}, env.auth.Grants())
	assert.Equal(t, "stored", env.auth.Form(0)["refresh_token"])
	assert.Equal(t, "refresh-1", store.token)
}
