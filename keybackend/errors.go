package keybackend

import "errors"

// ErrKeyNotFound is returned when the access key does not exist in the store.
var ErrKeyNotFound = errors.New("access key not found")

// ErrNoKeys is returned when a store is asked for a signing key but holds none.
var ErrNoKeys = errors.New("no signing keys configured")
