package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/secureapi/authcore/internal/handlers/claimsctx"
	"github.com/secureapi/authcore/internal/handlers/render"
	"github.com/secureapi/authcore/internal/service/auth/claims"
)

type accessVerifier interface {
	// Statelessly verify a presented access token
	VerifyAccess(tokenString string) (claims.AccessClaims, error)
}

// BearerAuth verifies the Authorization header and puts the token claims
// into the request context
func BearerAuth(verifier accessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			c, err := verifier.VerifyAccess(token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := claimsctx.New(r.Context(), c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose token lacks the role.
// Must be applied after BearerAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := claimsctx.FromContext(r.Context())
			if !ok || !slices.Contains(c.Roles, role) {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
