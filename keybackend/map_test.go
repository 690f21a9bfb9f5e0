package keybackend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/keybackend"
)

func TestMapSecretStore_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		keys      []keybackend.KeyPair
		accessKey string
		wantKey   string
		wantErr   error
	}{
		{
			name: "returns secret key when access key exists",
			keys: []keybackend.KeyPair{
				{AccessKey: "access1", SecretKey: "secret1"},
				{AccessKey: "access2", SecretKey: "secret2"},
			},
			accessKey: "access2",
			wantKey:   "secret2",
		},
		{
			name:      "returns ErrKeyNotFound when access key does not exist",
			keys:      []keybackend.KeyPair{{AccessKey: "access1", SecretKey: "secret1"}},
			accessKey: "nonexistent",
			wantErr:   keybackend.ErrKeyNotFound,
		},
		{
			name:      "returns ErrKeyNotFound for nil store",
			keys:      nil,
			accessKey: "anykey",
			wantErr:   keybackend.ErrKeyNotFound,
		},
		{
			name: "later duplicate replaces secret",
			keys: []keybackend.KeyPair{
				{AccessKey: "dup", SecretKey: "first"},
				{AccessKey: "dup", SecretKey: "second"},
			},
			accessKey: "dup",
			wantKey:   "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := keybackend.NewMapSecretStore(tt.keys)
			gotKey, err := store.Lookup(tt.accessKey)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, pinvault.ErrUnauthorized)
				assert.Empty(t, gotKey)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKey, gotKey)
			}
		})
	}
}

func TestMapSecretStore_Primary(t *testing.T) {
	t.Run("first complete pair signs", func(t *testing.T) {
		store := keybackend.NewMapSecretStore([]keybackend.KeyPair{
			{AccessKey: "", SecretKey: "skipped"},
			{AccessKey: "NEW", SecretKey: "new-secret"},
			{AccessKey: "OLD", SecretKey: "old-secret"},
		})

		primary, err := store.Primary()
		require.NoError(t, err)
		assert.Equal(t, keybackend.KeyPair{AccessKey: "NEW", SecretKey: "new-secret"}, primary)
		assert.Equal(t, 2, store.Len())
		assert.False(t, store.Ephemeral())
	})

	t.Run("empty store", func(t *testing.T) {
		_, err := keybackend.NewMapSecretStore(nil).Primary()
		assert.ErrorIs(t, err, keybackend.ErrNoKeys)
	})
}
