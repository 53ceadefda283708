package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is an opaque long-lived credential stored per user.
//
// A token record is never deleted. Once RevokedAt is set it stays set.
// ReplacedBy links the token to its successor when it was rotated, so the
// full rotation chain remains available for audit and reuse detection.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Token      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil if token not revoked
	ReplacedBy *uuid.UUID // nil unless token was rotated
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token may still be exchanged
func (t RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
