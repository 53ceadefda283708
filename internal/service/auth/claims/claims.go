// Package claims assembles the claim set carried by access tokens.
package claims

import (
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/apperrors"
	"github.com/secureapi/authcore/internal/models"
)

// AccessClaims is the claim set of a signed access token.
//
// Subject is the username, UserID the directory identifier. Roles keeps one
// entry per granted role in grant order. Custom carries directory-held
// pass-through claims.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID         `json:"uid"`
	Email  string            `json:"email"`
	Roles  []string          `json:"roles,omitempty"`
	Custom map[string]string `json:"custom,omitempty"`
}

// Build assembles claims for the user. Deterministic except for the token id:
// every call gets a fresh jti so two tokens for the same user are
// distinguishable in logs and replay analysis.
func Build(user models.User, roles []string, custom []models.Claim) (AccessClaims, error) {
	if user.Username == "" || user.Email == "" {
		return AccessClaims{}, fmt.Errorf("user %s: %w", user.ID, apperrors.ErrInvalidUserState)
	}

	c := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.Username,
			ID:      uuid.NewString(),
		},
		UserID: user.ID,
		Email:  user.Email,
		Roles:  slices.Clone(roles),
	}

	if len(custom) > 0 {
		c.Custom = make(map[string]string, len(custom))
		for _, claim := range custom {
			c.Custom[claim.Key] = claim.Value
		}
	}

	return c, nil
}
