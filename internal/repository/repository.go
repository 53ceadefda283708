package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FirstName      string
	LastName       string
	HashedPassword string
}

// User directory contract
type UserRepo interface {
	// Create user
	// If user with same username or email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Grant role to user. Granting an already held role is a no-op
	AddRole(ctx context.Context, userID uuid.UUID, role string) error

	// Roles in the order they were granted
	GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error)

	// Extra directory-held claims in insertion order
	GetClaims(ctx context.Context, userID uuid.UUID) ([]models.Claim, error)
}

// RefreshToken store contract
//
// Token records are append-only: they are created by Save and mutated only by
// the guarded Revoke/RevokeByID updates. Nothing deletes them.
type RefreshTokenRepo interface {
	// Append token to the owner's collection
	// Token values are globally unique, the store must reject duplicates
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token whatever state it is in
	// If absent must return apperrors.ErrTokenNotFound
	GetByToken(ctx context.Context, tokenString string) (models.RefreshToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)

	// Revoke sets revokedAt and, when replacedBy is not nil, the successor link
	// in one guarded update. Only the caller that observes the token active wins:
	// losers get apperrors.ErrTokenInactive, absent tokens apperrors.ErrTokenNotFound.
	// Must never overwrite an existing revoked_at.
	Revoke(ctx context.Context, tokenString string, revokedAt time.Time, replacedBy *uuid.UUID) (models.RefreshToken, error)

	// Revoke by record id regardless of expiry. Used for forward chain revocation.
	// Already revoked records are left untouched.
	RevokeByID(ctx context.Context, id uuid.UUID, revokedAt time.Time) error

	// Current active token for the user, earliest created first.
	// apperrors.ErrTokenNotFound when the user holds no active token.
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (models.RefreshToken, error)

	// All tokens of the user regardless of state, for audit
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RefreshToken, error)
}

type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// LockUser takes an exclusive transaction scoped lock for the user.
	// Valid only inside InTx; released on commit or rollback.
	LockUser(ctx context.Context, userID uuid.UUID) error

	// Run fn within a single database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
