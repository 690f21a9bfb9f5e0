package pinvault

import "errors"

var (
	// ErrNotFound is returned when a file id or credential record does not resolve
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat is returned when a PIN is not exactly four decimal digits
	ErrInvalidFormat = errors.New("invalid format")
	// ErrMissingField is returned when a required request field is absent
	ErrMissingField = errors.New("missing field")
	// ErrInvalidCredential is returned when a PIN does not match the stored secret
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidArgument is returned when input validation fails
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingFile is returned when an upload carries no file part
	ErrMissingFile = errors.New("missing file")
	// ErrPayloadTooLarge is returned when an upload exceeds the size ceiling
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrStorage is returned when the object store or metadata store fails
	ErrStorage = errors.New("storage error")
	// ErrUnauthorized is returned when a signed URL fails verification
	ErrUnauthorized = errors.New("unauthorized")
)
