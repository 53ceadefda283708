package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// User record misses data required to build claims (empty username or email)
	ErrInvalidUserState = errors.New("user state is invalid")

	ErrUnknownRole = errors.New("role not found")

	// Signer configuration errors
	ErrWeakKey    = errors.New("signing key is too short")
	ErrInvalidTTL = errors.New("token ttl must be positive")

	// Access token verification errors
	// Kept separate so callers see exactly which check failed
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrTokenExpired     = errors.New("token is expired")

	// Refresh token lifecycle errors
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenInactive = errors.New("refresh token is not active")
)
