// Package common defines shared constants and sentinel errors used across
// the shelfkeeper server and its tooling. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")
	ErrorForbidden  = errors.New("forbidden")

	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked means a refresh token verified but is no longer in the store.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrStorageUnavailable is transient; callers may retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
