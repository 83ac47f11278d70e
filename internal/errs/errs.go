// Package errs contains sentinel errors shared across the store, service and
// handler layers so that HTTP status mapping stays in one place.
package errs

import "errors"

var (
	// ErrInvalidCredentials covers both unknown username and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled indicates the user exists but is_active is false.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidToken indicates a token that fails signature, expiry or type checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked indicates a refresh token whose stored row is revoked,
	// missing or past its expiry.
	ErrTokenRevoked = errors.New("token revoked or expired")

	ErrKeyNotFound  = errors.New("license key not found")
	ErrKeyBlocked   = errors.New("license key blocked")
	ErrKeyExpired   = errors.New("license key expired")
	ErrHwidMismatch = errors.New("hwid mismatch")
	ErrInvalidDays  = errors.New("days must be positive")

	ErrDuplicateKey      = errors.New("license key already exists")
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrNotFound is the generic missing-entity sentinel (users and the like).
	ErrNotFound = errors.New("not found")
)
