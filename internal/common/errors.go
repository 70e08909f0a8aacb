// Package common defines shared constants and sentinel errors used across
// client and server layers of HushKey. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Signup errors.
	ErrEmailInUse = errors.New("email already in use")

	// Credential errors. Unknown email and wrong password both surface as
	// ErrInvalidCredentials; missing, garbled, expired, and revoked refresh
	// tokens all surface as ErrInvalidToken. Callers must not be able to
	// tell which underlying check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	// Vault errors (client side). ErrAuthenticationFailed means the envelope
	// could not be opened with the supplied secret; ErrFormat means the
	// envelope bytes themselves are malformed.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrFormat               = errors.New("malformed envelope")

	// Transport errors (client side).
	ErrServerUnreachable = errors.New("server unreachable")

	// Generic flow control.
	ErrInternal = errors.New("internal error")
)
