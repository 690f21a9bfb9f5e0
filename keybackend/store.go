package keybackend

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeysConfig holds configuration for loading access keys.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline"` // Inline key pairs from config
	File   string    `mapstructure:"file"`   // Path to JSON or YAML file containing key pairs
}

// NewSecretStore creates a MapSecretStore from the given configuration.
// Inline keys come first, then file keys; a file key overrides an inline key
// with the same access key. When nothing is configured a random pair is
// generated so the filesystem backend works out of the box.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	pairs := append([]KeyPair(nil), cfg.Inline...)

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, fileKeys...)
	}

	store := NewMapSecretStore(pairs)
	if store.Len() > 0 {
		return store, nil
	}

	pair, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	store = NewMapSecretStore([]KeyPair{pair})
	store.ephemeral = true
	return store, nil
}

// GenerateKeyPair returns a random pair shaped like an AWS key.
func GenerateKeyPair() (KeyPair, error) {
	access := make([]byte, 8)
	secret := make([]byte, 30)

	if _, err := rand.Read(access); err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	if _, err := rand.Read(secret); err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}

	return KeyPair{
		AccessKey: "PV" + fmt.Sprintf("%X", access),
		SecretKey: base64.StdEncoding.EncodeToString(secret),
	}, nil
}
