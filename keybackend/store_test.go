package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault/keybackend"
)

func TestNewSecretStore_InlineKeysOnly(t *testing.T) {
	t.Parallel()

	cfg := keybackend.KeysConfig{
		Inline: []keybackend.KeyPair{
			{AccessKey: "KEY1", SecretKey: "secret1"},
			{AccessKey: "KEY2", SecretKey: "secret2"},
		},
	}

	store, err := keybackend.NewSecretStore(cfg)
	require.NoError(t, err)

	secret2, err := store.Lookup("KEY2")
	require.NoError(t, err)
	assert.Equal(t, "secret2", secret2)

	primary, err := store.Primary()
	require.NoError(t, err)
	assert.Equal(t, "KEY1", primary.AccessKey)
	assert.False(t, store.Ephemeral())
}

func TestNewSecretStore_BothInlineAndFile(t *testing.T) {
	t.Parallel()

	path := writeKeysFile(t, "keys.json", `[{"access_key": "FILE_KEY", "secret_key": "file_secret"}]`)

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{
		Inline: []keybackend.KeyPair{{AccessKey: "INLINE_KEY", SecretKey: "inline_secret"}},
		File:   path,
	})
	require.NoError(t, err)

	inlineSecret, err := store.Lookup("INLINE_KEY")
	require.NoError(t, err)
	assert.Equal(t, "inline_secret", inlineSecret)

	fileSecret, err := store.Lookup("FILE_KEY")
	require.NoError(t, err)
	assert.Equal(t, "file_secret", fileSecret)
}

func TestNewSecretStore_FileOverridesInline(t *testing.T) {
	t.Parallel()

	path := writeKeysFile(t, "keys.json", `[{"access_key": "DUPLICATE_KEY", "secret_key": "file_wins"}]`)

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{
		Inline: []keybackend.KeyPair{{AccessKey: "DUPLICATE_KEY", SecretKey: "inline_loses"}},
		File:   path,
	})
	require.NoError(t, err)

	secret, err := store.Lookup("DUPLICATE_KEY")
	require.NoError(t, err)
	assert.Equal(t, "file_wins", secret, "file keys should override inline keys")
}

func TestNewSecretStore_EmptyConfigGeneratesKey(t *testing.T) {
	t.Parallel()

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{})
	require.NoError(t, err)

	assert.True(t, store.Ephemeral())
	assert.Equal(t, 1, store.Len())

	primary, err := store.Primary()
	require.NoError(t, err)

	secret, err := store.Lookup(primary.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, primary.SecretKey, secret)

	other, err := keybackend.NewSecretStore(keybackend.KeysConfig{})
	require.NoError(t, err)
	otherPrimary, err := other.Primary()
	require.NoError(t, err)
	assert.NotEqual(t, primary, otherPrimary)
}

func TestNewSecretStore_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := keybackend.NewSecretStore(keybackend.KeysConfig{File: "/nonexistent/path/keys.json"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")
}

func TestNewSecretStore_InvalidFile(t *testing.T) {
	t.Parallel()

	path := writeKeysFile(t, "keys.json", "not valid json")

	_, err := keybackend.NewSecretStore(keybackend.KeysConfig{File: path})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse keys file")
}

// writeKeysFile is a test helper that creates a temporary file with the given content
func writeKeysFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
