package handlers

import (
	"net/http"

	"github.com/secureapi/authcore/internal/handlers/middleware"
	"github.com/secureapi/authcore/internal/logger"
	"github.com/secureapi/authcore/internal/service/auth"
	"github.com/secureapi/authcore/internal/service/auth/claims"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Service surface required to build the router
type Service interface {
	AuthService
	VerifyAccess(tokenString string) (claims.AccessClaims, error)
}

func NewRouter(s Service, l logger.Logger) http.Handler {
	withAuth := middleware.BearerAuth(s)
	adminOnly := middleware.RequireRole(string(auth.RoleAdministrator))

	authHandler := NewAuth(s)
	securedHandler := NewSecured(s)

	apisecured := http.NewServeMux()
	apisecured.Handle("GET /me", securedHandler.Me())
	apisecured.Handle("GET /users/{id}/refresh-tokens", adminOnly(securedHandler.ListTokens()))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", authHandler.Handler()))
	root.Handle("/api/secured/", http.StripPrefix("/api/secured", withAuth(apisecured)))

	return chain(root,
		middleware.LoggerMiddleware(l),
	)
}
