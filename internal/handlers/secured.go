package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/secureapi/authcore/internal/handlers/claimsctx"
	"github.com/secureapi/authcore/internal/handlers/render"
)

// SecuredHandler serves endpoints that require a verified access token
type SecuredHandler struct {
	authService AuthService
}

func NewSecured(s AuthService) *SecuredHandler {
	return &SecuredHandler{authService: s}
}

// Me reports the verified identity of the caller. A cheap probe for clients
// to check token validity and role propagation.
func (h *SecuredHandler) Me() http.Handler {
	type MeResponse struct {
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Roles    []string `json:"roles,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := claimsctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		render.JSON(w, MeResponse{Username: c.Subject, Email: c.Email, Roles: c.Roles})
	})
}

// ListTokens exposes the full refresh token history of a user for audit.
// Wired behind the Administrator role guard.
func (h *SecuredHandler) ListTokens() http.Handler {
	type TokenRecord struct {
		ID        uuid.UUID  `json:"id"`
		CreatedAt string     `json:"created"`
		ExpiresAt string     `json:"expires"`
		RevokedAt *string    `json:"revoked,omitempty"`
		Successor *uuid.UUID `json:"replacedBy,omitempty"`
		IsActive  bool       `json:"isActive"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		tokens, err := h.authService.ListTokens(r.Context(), userID)
		if err != nil {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		records := make([]TokenRecord, 0, len(tokens))
		for _, t := range tokens {
			record := TokenRecord{
				ID:        t.ID,
				CreatedAt: t.CreatedAt.Format(time.RFC3339),
				ExpiresAt: t.ExpiresAt.Format(time.RFC3339),
				Successor: t.ReplacedBy,
				IsActive:  t.IsActive(now),
			}
			if t.RevokedAt != nil {
				revoked := t.RevokedAt.Format(time.RFC3339)
				record.RevokedAt = &revoked
			}
			records = append(records, record)
		}

		render.JSON(w, records)
	})
}
