// Package keybackend holds the access keys used to sign and verify blob URLs
// served by the vault's filesystem backend.
package keybackend

import (
	"fmt"

	"github.com/sagarc03/pinvault"
)

// MapSecretStore keeps key pairs in memory. The first pair signs new URLs;
// every pair verifies, so a retired key keeps working until it is removed.
type MapSecretStore struct {
	keys      map[string]string
	order     []string
	ephemeral bool
}

// NewMapSecretStore builds a store from pairs. Pairs with an empty access or
// secret key are skipped. A repeated access key replaces the earlier secret
// but keeps the earlier position.
func NewMapSecretStore(pairs []KeyPair) *MapSecretStore {
	s := &MapSecretStore{keys: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		if p.AccessKey == "" || p.SecretKey == "" {
			continue
		}
		if _, seen := s.keys[p.AccessKey]; !seen {
			s.order = append(s.order, p.AccessKey)
		}
		s.keys[p.AccessKey] = p.SecretKey
	}
	return s
}

// Lookup retrieves the secret key for the given access key.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", fmt.Errorf("%w: %w", ErrKeyNotFound, pinvault.ErrUnauthorized)
	}
	return secretKey, nil
}

// Primary returns the pair used to sign new URLs.
func (s *MapSecretStore) Primary() (KeyPair, error) {
	if len(s.order) == 0 {
		return KeyPair{}, ErrNoKeys
	}
	accessKey := s.order[0]
	return KeyPair{AccessKey: accessKey, SecretKey: s.keys[accessKey]}, nil
}

// Len reports how many pairs the store holds.
func (s *MapSecretStore) Len() int {
	return len(s.order)
}

// Ephemeral reports whether the store holds only a generated key, in which
// case URLs issued before a restart stop verifying after it.
func (s *MapSecretStore) Ephemeral() bool {
	return s.ephemeral
}
