package pinvault

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPIN is used for the first credential when none is configured.
const DefaultPIN = "1234"

// AuthConfig holds configuration options for AuthService.
type AuthConfig struct {
	DefaultPIN string // PIN stored on first verification (default: 1234)
	HashCost   int    // bcrypt cost (default: bcrypt.DefaultCost)
}

// AuthService checks PINs against the singleton credential record.
// It issues no tokens and keeps no session state.
type AuthService struct {
	repo       CredentialRepo
	defaultPIN string
	hashCost   int
	now        func() time.Time
}

func NewAuthService(repo CredentialRepo, cfg AuthConfig) (*AuthService, error) {
	defaultPIN := cfg.DefaultPIN
	if defaultPIN == "" {
		defaultPIN = DefaultPIN
	}
	if !IsValidPIN(defaultPIN) {
		return nil, fmt.Errorf("new auth service: %w: default PIN must be exactly 4 digits", ErrInvalidFormat)
	}

	hashCost := cfg.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("new auth service: %w: hash cost %d out of range", ErrInvalidArgument, hashCost)
	}

	return &AuthService{
		repo:       repo,
		defaultPIN: defaultPIN,
		hashCost:   hashCost,
		now:        time.Now,
	}, nil
}

// Verify checks pin against the stored credential.
//
// When no credential exists yet, one is created from the default PIN (stored
// hashed) and pin succeeds only if it equals the default. A legacy plain
// credential is compared directly and is left as it is; see MigrateLegacy.
//
// Error types returned:
//   - ErrInvalidFormat: pin is not exactly 4 digits
//   - ErrInvalidCredential: pin does not match
//   - ErrStorage: the credential could not be read or created
func (s *AuthService) Verify(ctx context.Context, pin string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}

	if !IsValidPIN(pin) {
		return fmt.Errorf("verify pin: %w: password must be exactly 4 digits", ErrInvalidFormat)
	}

	cred, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		if err := s.store(ctx, s.defaultPIN); err != nil {
			return fmt.Errorf("verify pin: create default credential: %w", err)
		}
		slog.InfoContext(ctx, "default credential created")

		if subtle.ConstantTimeCompare([]byte(pin), []byte(s.defaultPIN)) != 1 {
			return fmt.Errorf("verify pin: %w", ErrInvalidCredential)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("verify pin: %w: %w", ErrStorage, err)
	}

	if err := s.compare(cred, pin); err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}

	return nil
}

// ChangePassword replaces the stored credential with a hash of newPIN after
// checking current against it.
//
// Error types returned:
//   - ErrMissingField: current or newPIN is empty
//   - ErrInvalidFormat: newPIN is not exactly 4 digits
//   - ErrInvalidCredential: current does not match, or no credential exists
//   - ErrStorage: the credential could not be read or written
func (s *AuthService) ChangePassword(ctx context.Context, current, newPIN string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if current == "" || newPIN == "" {
		return fmt.Errorf("change password: %w: both passwords required", ErrMissingField)
	}

	if !IsValidPIN(newPIN) {
		return fmt.Errorf("change password: %w: new password must be 4 digits", ErrInvalidFormat)
	}

	cred, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("change password: %w: current password is incorrect", ErrInvalidCredential)
	}
	if err != nil {
		return fmt.Errorf("change password: %w: %w", ErrStorage, err)
	}

	if err := s.compare(cred, current); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if err := s.store(ctx, newPIN); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	return nil
}

// MigrateLegacy rewrites a plain credential as a hash of the same PIN.
// It reports whether anything was rewritten.
func (s *AuthService) MigrateLegacy(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("migrate credential: %w", err)
	}

	cred, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrate credential: %w: %w", ErrStorage, err)
	}

	if cred.Kind != CredentialPlain {
		return false, nil
	}

	if err := s.store(ctx, cred.Secret); err != nil {
		return false, fmt.Errorf("migrate credential: %w", err)
	}

	return true, nil
}

func (s *AuthService) compare(cred Credential, pin string) error {
	switch cred.Kind {
	case CredentialPlain:
		if subtle.ConstantTimeCompare([]byte(cred.Secret), []byte(pin)) != 1 {
			return ErrInvalidCredential
		}
		return nil
	case CredentialHashed:
		err := bcrypt.CompareHashAndPassword([]byte(cred.Secret), []byte(pin))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredential
		}
		if err != nil {
			return fmt.Errorf("%w: stored hash unreadable: %w", ErrStorage, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown credential kind %q", ErrStorage, cred.Kind)
	}
}

func (s *AuthService) store(ctx context.Context, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	cred := Credential{
		Kind:      CredentialHashed,
		Secret:    string(hash),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, cred); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return nil
}
