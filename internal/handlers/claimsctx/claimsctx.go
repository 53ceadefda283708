package claimsctx

import (
	"context"

	"github.com/secureapi/authcore/internal/service/auth/claims"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context carrying verified access token claims
func New(ctx context.Context, c claims.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// Extract the claims from the context
func FromContext(ctx context.Context) (claims.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(claims.AccessClaims)
	return c, ok
}
